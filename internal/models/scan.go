package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanStatus is the lifecycle state of a scan run.
// Terminal failure collapses into ScanStatusCompleted with Error set.
type ScanStatus string

const (
	ScanStatusInitializing ScanStatus = "initializing"
	ScanStatusRunning      ScanStatus = "running"
	ScanStatusCompleted    ScanStatus = "completed"
)

// ScanOptions is the immutable configuration a scan was started with.
type ScanOptions struct {
	FeedCount   int      `json:"feed_count"`  // Max feeds to scan (0 = all candidates)
	DaysBack    int      `json:"days_back"`   // Recency window for feed items
	Parallelism int      `json:"parallelism"` // Number of concurrent worker chains
	FilterTags  []string `json:"filter_tags"` // Any-tag-match feed filter (empty = all feeds)
}

// Scan is the root state object for one run of the pipeline.
// Created initializing, flipped to running by ingestion, and completed by
// the last worker (or the watchdog when the chain is unrecoverable).
type Scan struct {
	ID                string      `json:"id"`
	Status            ScanStatus  `json:"status" badgerhold:"index"`
	Options           ScanOptions `json:"options"`
	TotalArticles     int         `json:"total_articles"`
	ProcessedArticles int         `json:"processed_articles"`
	Error             string      `json:"error,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	CompletedAt       *time.Time  `json:"completed_at,omitempty"`
}

// NewScan creates a scan in the initializing state.
func NewScan(opts ScanOptions) *Scan {
	return &Scan{
		ID:        uuid.New().String(),
		Status:    ScanStatusInitializing,
		Options:   opts,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkRunning transitions the scan to running with its article totals.
func (s *Scan) MarkRunning(totalArticles int) {
	s.Status = ScanStatusRunning
	s.TotalArticles = totalArticles
	s.ProcessedArticles = 0
}

// MarkCompleted transitions the scan to its terminal state. CompletedAt is
// set exactly once; repeated calls (watchdog redundancy) leave it untouched.
func (s *Scan) MarkCompleted(errMsg string) {
	s.Status = ScanStatusCompleted
	if errMsg != "" {
		s.Error = errMsg
	}
	if s.CompletedAt == nil {
		now := time.Now().UTC()
		s.CompletedAt = &now
	}
}

// IsTerminal returns true once the scan has completed (with or without error).
func (s *Scan) IsTerminal() bool {
	return s.Status == ScanStatusCompleted
}
