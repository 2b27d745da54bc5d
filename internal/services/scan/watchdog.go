package scan

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/common"
	"github.com/reelscan/reelscan/internal/models"
)

// Watchdog periodically inspects non-terminal scans and repairs states the
// in-memory chain cannot: scans whose ingestion died before building a
// queue, queues whose workers died mid-drain, and scans that outlived every
// worker. All repairs act on persisted state only, so a pass is safe to run
// concurrently with live workers and idempotent across passes.
type Watchdog struct {
	service *Service
	logger  arbor.ILogger

	interval    time.Duration
	initTimeout time.Duration
	runTimeout  time.Duration

	quit chan struct{}
}

func NewWatchdog(cfg *common.ScanConfig, service *Service, logger arbor.ILogger) *Watchdog {
	return &Watchdog{
		service:     service,
		logger:      logger,
		interval:    common.MustDuration(cfg.WatchdogInterval),
		initTimeout: common.MustDuration(cfg.InitTimeout),
		runTimeout:  common.MustDuration(cfg.RunTimeout),
		quit:        make(chan struct{}),
	}
}

// Start runs an immediate inspection pass, then inspects on the configured
// interval until Stop. The immediate pass is the crash-recovery path: scans
// orphaned by a previous process are revived or closed out at startup.
func (w *Watchdog) Start() {
	common.SafeGo(w.logger, "scan-watchdog", func() {
		w.inspect()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.quit:
				return
			case <-ticker.C:
				w.inspect()
			}
		}
	})
	w.logger.Info().
		Str("interval", w.interval.String()).
		Str("init_timeout", w.initTimeout.String()).
		Str("run_timeout", w.runTimeout.String()).
		Msg("Scan watchdog started")
}

func (w *Watchdog) Stop() {
	select {
	case <-w.quit:
	default:
		close(w.quit)
	}
}

func (w *Watchdog) inspect() {
	ctx := context.Background()

	scans, err := w.service.store.ScanStorage().ListActiveScans(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Watchdog failed to list active scans")
		return
	}

	for _, scan := range scans {
		switch scan.Status {
		case models.ScanStatusInitializing:
			w.repairInitializing(ctx, scan)
		case models.ScanStatusRunning:
			w.repairRunning(ctx, scan)
		}
	}
}

// repairInitializing handles scans whose ingestion never finished. A scan
// with no queue is given until initTimeout before being closed out; a scan
// that has a queue but never flipped to running is flipped and revived.
func (w *Watchdog) repairInitializing(ctx context.Context, scan *models.Scan) {
	queue, err := w.service.store.QueueStorage().GetQueue(ctx, scan.ID)
	if err != nil {
		w.logger.Error().Err(err).Str("scan_id", scan.ID).Msg("Watchdog failed to load queue")
		return
	}

	if queue == nil {
		if time.Since(scan.CreatedAt) > w.initTimeout {
			w.logger.Warn().Str("scan_id", scan.ID).Msg("Watchdog closing scan that timed out during initialization")
			w.service.failScan(ctx, scan, "timed out during initialization")
		}
		return
	}

	// Queue exists but the running transition was lost. No article has been
	// processed yet, so the queue length is the scan total.
	remaining := len(queue.List)
	scan.MarkRunning(remaining)
	if remaining == 0 {
		scan.MarkCompleted("")
	}
	if err := w.service.store.ScanStorage().SaveScan(ctx, scan); err != nil {
		w.logger.Error().Err(err).Str("scan_id", scan.ID).Msg("Watchdog failed to save repaired scan")
		return
	}

	w.logger.Warn().
		Str("scan_id", scan.ID).
		Int("remaining", remaining).
		Msg("Watchdog repaired scan stuck initializing with a queue")

	if remaining > 0 {
		w.reviveQueue(ctx, scan.ID, queue.Status)
	}
}

// repairRunning handles running scans whose worker chains may have died.
func (w *Watchdog) repairRunning(ctx context.Context, scan *models.Scan) {
	queue, err := w.service.store.QueueStorage().GetQueue(ctx, scan.ID)
	if err != nil {
		w.logger.Error().Err(err).Str("scan_id", scan.ID).Msg("Watchdog failed to load queue")
		return
	}

	if queue == nil {
		w.logger.Warn().Str("scan_id", scan.ID).Msg("Watchdog closing running scan with no queue")
		w.service.failScan(ctx, scan, "work queue missing")
		return
	}

	remaining := len(queue.List)

	if remaining == 0 {
		if queue.Status != models.QueueStatusCompleted {
			if err := w.service.store.QueueStorage().CancelQueue(ctx, scan.ID); err != nil {
				w.logger.Error().Err(err).Str("scan_id", scan.ID).Msg("Watchdog failed to complete drained queue")
				return
			}
		}
		// Drained queue but the scan never got its terminal transition.
		w.service.finalizeScan(ctx, scan.ID)
		return
	}

	// Items remain. A queue marked completed is an inconsistency to repair
	// immediately; an old scan with a processing queue gets a defensive
	// worker relaunch since its chains may all have died.
	if queue.Status == models.QueueStatusCompleted {
		w.logger.Warn().
			Str("scan_id", scan.ID).
			Int("remaining", remaining).
			Msg("Watchdog reviving queue marked completed with items remaining")
		w.reviveQueue(ctx, scan.ID, queue.Status)
		return
	}

	if time.Since(scan.CreatedAt) > w.runTimeout {
		w.logger.Warn().
			Str("scan_id", scan.ID).
			Int("remaining", remaining).
			Msg("Watchdog relaunching worker for long-running scan")
		w.service.launchWorkers(scan.ID, 1)
	}
}

// reviveQueue flips a wrongly-completed queue back to processing and
// launches a single worker chain to drain it.
func (w *Watchdog) reviveQueue(ctx context.Context, scanID string, status models.QueueStatus) {
	if status == models.QueueStatusCompleted {
		if err := w.service.store.QueueStorage().MarkProcessing(ctx, scanID); err != nil {
			w.logger.Error().Err(err).Str("scan_id", scanID).Msg("Watchdog failed to reopen queue")
			return
		}
	}
	w.service.launchWorkers(scanID, 1)
}
