package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/common"
	"github.com/reelscan/reelscan/internal/interfaces"
	"github.com/reelscan/reelscan/internal/models"
)

const (
	// maxContentChars caps extracted article content before analysis to keep
	// prompt sizes bounded.
	maxContentChars = 10000

	// undatedPerFeedLimit bounds undated items by feed position: an item
	// with no usable date is kept only within the first N feed entries.
	undatedPerFeedLimit = 5
)

// Service orchestrates the scan pipeline: feed ingestion, the queued
// article worker chains, and the terminal transition. All background work
// runs through the Dispatcher; the only cross-worker coordination point is
// the atomic queue pop in storage.
type Service struct {
	store      interfaces.StorageManager
	feedSource interfaces.FeedSource
	extractor  interfaces.ContentExtractor
	analyzer   interfaces.Analyzer
	dispatcher *Dispatcher
	logger     arbor.ILogger

	workerStagger time.Duration
}

func NewService(
	cfg *common.ScanConfig,
	store interfaces.StorageManager,
	feedSource interfaces.FeedSource,
	extractor interfaces.ContentExtractor,
	analyzer interfaces.Analyzer,
	logger arbor.ILogger,
) *Service {
	return &Service{
		store:         store,
		feedSource:    feedSource,
		extractor:     extractor,
		analyzer:      analyzer,
		dispatcher:    NewDispatcher(logger),
		logger:        logger,
		workerStagger: common.MustDuration(cfg.WorkerStagger),
	}
}

// Stop discards pending dispatched work. In-flight steps finish; any state
// left behind is repaired by the watchdog on next startup.
func (s *Service) Stop() {
	s.dispatcher.Stop()
}

// StartScan begins a new scan unless one is already active. The scan record
// is persisted in the initializing state before ingestion is dispatched, so
// a crash between the two leaves a record the watchdog can time out. A
// positive delay postpones ingestion without delaying the caller.
func (s *Service) StartScan(ctx context.Context, opts models.ScanOptions, delay time.Duration) (*models.Scan, error) {
	active, err := s.store.ScanStorage().GetActiveScan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for active scan: %w", err)
	}
	if active != nil {
		return nil, fmt.Errorf("%w: scan %s is %s", ErrScanAlreadyRunning, active.ID, active.Status)
	}

	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if opts.DaysBack <= 0 {
		opts.DaysBack = 7
	}

	scan := models.NewScan(opts)
	if err := s.store.ScanStorage().SaveScan(ctx, scan); err != nil {
		return nil, fmt.Errorf("failed to save scan: %w", err)
	}

	s.logger.Info().
		Str("scan_id", scan.ID).
		Int("parallelism", opts.Parallelism).
		Int("days_back", opts.DaysBack).
		Msg("Scan started")

	s.dispatcher.Schedule("scan-ingest-"+scan.ID, delay, func() {
		s.runIngestion(scan.ID)
	})

	return scan, nil
}

// CancelScan terminates an active scan. The queue is cancelled first so
// in-flight workers drain out on their next pop.
func (s *Service) CancelScan(ctx context.Context, scanID string) error {
	scan, err := s.store.ScanStorage().GetScan(ctx, scanID)
	if err != nil {
		return fmt.Errorf("failed to load scan %s: %w", scanID, err)
	}
	if scan == nil {
		return ErrScanNotFound
	}
	if scan.IsTerminal() {
		return ErrScanCompleted
	}

	if err := s.store.QueueStorage().CancelQueue(ctx, scanID); err != nil {
		return fmt.Errorf("failed to cancel queue for scan %s: %w", scanID, err)
	}

	scan.MarkCompleted("cancelled")
	if err := s.store.ScanStorage().SaveScan(ctx, scan); err != nil {
		return fmt.Errorf("failed to save cancelled scan %s: %w", scanID, err)
	}

	s.logger.Info().Str("scan_id", scanID).Msg("Scan cancelled")
	return nil
}

// GetRunningScan returns the active scan, or nil when none exists.
func (s *Service) GetRunningScan(ctx context.Context) (*models.Scan, error) {
	return s.store.ScanStorage().GetActiveScan(ctx)
}

// GetScanByID returns a scan or ErrScanNotFound.
func (s *Service) GetScanByID(ctx context.Context, scanID string) (*models.Scan, error) {
	scan, err := s.store.ScanStorage().GetScan(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if scan == nil {
		return nil, ErrScanNotFound
	}
	return scan, nil
}

// ListScans returns scans newest first.
func (s *Service) ListScans(ctx context.Context, limit, offset int) ([]*models.Scan, error) {
	return s.store.ScanStorage().ListScans(ctx, limit, offset)
}

// QueueLength returns the remaining queue size for a scan.
func (s *Service) QueueLength(ctx context.Context, scanID string) (int, error) {
	return s.store.QueueStorage().Length(ctx, scanID)
}

// RetryArticle resets a failed article and dispatches it through the
// processing path as a standalone one-shot. The originating scan's queue is
// immutable and is not touched.
func (s *Service) RetryArticle(ctx context.Context, articleID string) error {
	article, err := s.store.ArticleStorage().GetArticle(ctx, articleID)
	if err != nil {
		return fmt.Errorf("failed to load article %s: %w", articleID, err)
	}
	if article == nil {
		return ErrArticleNotFound
	}
	if article.Status != models.ArticleStatusFailed {
		return fmt.Errorf("%w: article %s is %s", ErrArticleNotFailed, articleID, article.Status)
	}

	article.ResetForRetry()
	if err := s.store.ArticleStorage().SaveArticle(ctx, article); err != nil {
		return fmt.Errorf("failed to reset article %s: %w", articleID, err)
	}

	s.dispatcher.Schedule("article-retry-"+articleID, 0, func() {
		s.processArticle(context.Background(), articleID)
	})

	return nil
}

// RetryAllFailed resets every failed article and dispatches each as a
// standalone one-shot, staggered like worker launches. Returns the number
// of articles dispatched.
func (s *Service) RetryAllFailed(ctx context.Context) (int, error) {
	failed, err := s.store.ArticleStorage().ListByStatus(ctx, models.ArticleStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("failed to list failed articles: %w", err)
	}

	dispatched := 0
	for _, article := range failed {
		article.ResetForRetry()
		if err := s.store.ArticleStorage().SaveArticle(ctx, article); err != nil {
			s.logger.Warn().Err(err).Str("article_id", article.ID).Msg("Failed to reset article for retry")
			continue
		}

		articleID := article.ID
		s.dispatcher.Schedule("article-retry-"+articleID, time.Duration(dispatched)*s.workerStagger, func() {
			s.processArticle(context.Background(), articleID)
		})
		dispatched++
	}

	s.logger.Info().Int("count", dispatched).Msg("Failed articles dispatched for retry")
	return dispatched, nil
}

// launchWorkers dispatches count worker chains for a scan with staggered
// starts. Also used by the watchdog to revive a stalled scan.
func (s *Service) launchWorkers(scanID string, count int) {
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("scan-worker-%s-%d", scanID, i)
		s.dispatcher.Schedule(name, time.Duration(i)*s.workerStagger, func() {
			s.runWorkerStep(scanID)
		})
	}
}
