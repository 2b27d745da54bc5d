package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/services/notify"
	"github.com/reelscan/reelscan/internal/services/scan"
	"github.com/reelscan/reelscan/internal/services/settings"
)

// Service drives the recurring jobs: automatic scan triggering and the
// recommendation digest. Settings are re-read on every tick, so interval
// changes take effect without rescheduling; the trigger itself fires every
// minute and decides from the settings whether a scan is due.
type Service struct {
	cron            *cron.Cron
	scanService     *scan.Service
	notifyService   *notify.Service
	settingsService *settings.Service
	logger          arbor.ILogger

	mu                      sync.Mutex
	minutesSinceScan        int
	minutesSinceDigestCheck int
}

func NewService(scanService *scan.Service, notifyService *notify.Service, settingsService *settings.Service, logger arbor.ILogger) *Service {
	return &Service{
		cron:            cron.New(),
		scanService:     scanService,
		notifyService:   notifyService,
		settingsService: settingsService,
		logger:          logger,
	}
}

// Start registers the recurring jobs and starts the cron runner.
func (s *Service) Start() error {
	if _, err := s.cron.AddFunc("@every 1m", s.tick); err != nil {
		return fmt.Errorf("failed to register scheduler tick: %w", err)
	}

	s.cron.Start()
	s.logger.Info().Msg("Scheduler started")
	return nil
}

// Stop halts the cron runner. A tick already in flight finishes.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// tick fires once a minute and runs whatever recurring work is due.
func (s *Service) tick() {
	ctx := context.Background()

	cfg, err := s.settingsService.Get(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduler could not load settings")
		return
	}

	s.mu.Lock()
	s.minutesSinceScan++
	s.minutesSinceDigestCheck++
	scanDue := cfg.Enabled && s.minutesSinceScan >= cfg.IntervalMinutes
	if scanDue {
		s.minutesSinceScan = 0
	}
	digestDue := cfg.DigestEnabled && s.minutesSinceDigestCheck >= cfg.IntervalMinutes
	if digestDue {
		s.minutesSinceDigestCheck = 0
	}
	s.mu.Unlock()

	if scanDue {
		s.triggerScan(ctx)
	}
	if digestDue {
		s.runDigest(ctx)
	}
}

func (s *Service) triggerScan(ctx context.Context) {
	cfg, err := s.settingsService.Get(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Auto-scan could not load settings")
		return
	}

	started, err := s.scanService.StartScan(ctx, cfg.ToScanOptions(), 0)
	if err != nil {
		if errors.Is(err, scan.ErrScanAlreadyRunning) {
			s.logger.Debug().Msg("Auto-scan skipped, a scan is already running")
			return
		}
		s.logger.Error().Err(err).Msg("Auto-scan failed to start")
		return
	}

	s.logger.Info().Str("scan_id", started.ID).Msg("Auto-scan started")
}

func (s *Service) runDigest(ctx context.Context) {
	count, err := s.notifyService.SendDigest(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Digest run failed")
		return
	}
	if count > 0 {
		s.logger.Info().Int("articles", count).Msg("Digest delivered")
	}
}
