package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/common"
	"github.com/reelscan/reelscan/internal/handlers"
	"github.com/reelscan/reelscan/internal/interfaces"
	"github.com/reelscan/reelscan/internal/services/analyzer"
	"github.com/reelscan/reelscan/internal/services/extractor"
	"github.com/reelscan/reelscan/internal/services/feeds"
	"github.com/reelscan/reelscan/internal/services/notify"
	"github.com/reelscan/reelscan/internal/services/scan"
	"github.com/reelscan/reelscan/internal/services/scheduler"
	"github.com/reelscan/reelscan/internal/services/settings"
	"github.com/reelscan/reelscan/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Collaborator services
	FeedSource interfaces.FeedSource
	Extractor  interfaces.ContentExtractor
	Analyzer   interfaces.Analyzer

	// Pipeline services
	SettingsService  *settings.Service
	ScanService      *scan.Service
	Watchdog         *scan.Watchdog
	NotifyService    *notify.Service
	SchedulerService *scheduler.Service

	// HTTP handlers
	ScanHandler     *handlers.ScanHandler
	ArticleHandler  *handlers.ArticleHandler
	FeedHandler     *handlers.FeedHandler
	SettingsHandler *handlers.SettingsHandler
	StatusHandler   *handlers.StatusHandler
}

// New wires the application: storage first, then the collaborator services,
// then the scan pipeline and its watchdog, then handlers.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	analyzerService, err := analyzer.NewAnalyzer(&config.LLM, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize analyzer: %w", err)
	}

	a := &App{
		Config:         config,
		Logger:         logger,
		StorageManager: storageManager,
		FeedSource:     feeds.NewService(&config.Feeds, logger),
		Extractor:      extractor.NewService(&config.Extractor, logger),
		Analyzer:       analyzerService,
	}

	a.SettingsService = settings.NewService(storageManager.KeyValueStorage(), logger)
	a.ScanService = scan.NewService(&config.Scan, storageManager, a.FeedSource, a.Extractor, a.Analyzer, logger)
	a.Watchdog = scan.NewWatchdog(&config.Scan, a.ScanService, logger)
	a.NotifyService = notify.NewService(storageManager.ArticleStorage(), a.SettingsService, notify.SlackFactory(logger), logger)
	a.SchedulerService = scheduler.NewService(a.ScanService, a.NotifyService, a.SettingsService, logger)

	a.ScanHandler = handlers.NewScanHandler(a.ScanService, a.SettingsService, logger)
	a.ArticleHandler = handlers.NewArticleHandler(storageManager.ArticleStorage(), a.ScanService, a.NotifyService, logger)
	a.FeedHandler = handlers.NewFeedHandler(storageManager.FeedStorage(), logger)
	a.SettingsHandler = handlers.NewSettingsHandler(a.SettingsService, logger)
	a.StatusHandler = handlers.NewStatusHandler(storageManager, a.ScanService, logger)

	return a, nil
}

// Start launches the background components. The watchdog starts first so
// its initial pass can repair scans orphaned by a previous process.
func (a *App) Start() error {
	a.Watchdog.Start()
	if err := a.SchedulerService.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Shutdown stops background work and closes storage.
func (a *App) Shutdown(ctx context.Context) error {
	a.SchedulerService.Stop()
	a.Watchdog.Stop()
	a.ScanService.Stop()

	if err := a.StorageManager.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
