package scan

import "errors"

var (
	// ErrScanAlreadyRunning is returned by StartScan while another scan is
	// not yet terminal.
	ErrScanAlreadyRunning = errors.New("a scan is already running")

	// ErrScanNotFound is returned when no scan exists for the given id.
	ErrScanNotFound = errors.New("scan not found")

	// ErrScanCompleted is returned when an operation requires a non-terminal
	// scan but the scan has already completed.
	ErrScanCompleted = errors.New("scan already completed")

	// ErrArticleNotFound is returned when no article exists for the given id.
	ErrArticleNotFound = errors.New("article not found")

	// ErrArticleNotFailed is returned by retry operations on an article that
	// is not in the failed state.
	ErrArticleNotFailed = errors.New("article is not in failed state")
)
