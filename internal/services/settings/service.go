package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/interfaces"
	"github.com/reelscan/reelscan/internal/models"
)

const settingsKey = "scan_settings"

// Service reads and writes the scan settings document in the KV store.
// Missing settings resolve to defaults so a fresh install works without
// any prior configuration.
type Service struct {
	kv       interfaces.KeyValueStorage
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewService(kv interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	return &Service{
		kv:       kv,
		validate: validator.New(),
		logger:   logger,
	}
}

// Get returns the stored settings, or defaults when none have been saved.
// A corrupt stored document is reported rather than silently replaced.
func (s *Service) Get(ctx context.Context) (models.ScanSettings, error) {
	raw, err := s.kv.Get(ctx, settingsKey)
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			return models.DefaultScanSettings(), nil
		}
		return models.ScanSettings{}, fmt.Errorf("failed to load scan settings: %w", err)
	}

	var settings models.ScanSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return models.ScanSettings{}, fmt.Errorf("stored scan settings are corrupt: %w", err)
	}

	return settings, nil
}

// Update validates and persists new settings.
func (s *Service) Update(ctx context.Context, settings models.ScanSettings) error {
	if err := s.validate.Struct(settings); err != nil {
		return fmt.Errorf("invalid scan settings: %w", err)
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode scan settings: %w", err)
	}

	if err := s.kv.Set(ctx, settingsKey, string(raw)); err != nil {
		return fmt.Errorf("failed to save scan settings: %w", err)
	}

	s.logger.Info().
		Bool("enabled", settings.Enabled).
		Int("interval_minutes", settings.IntervalMinutes).
		Int("parallelism", settings.Parallelism).
		Msg("Scan settings updated")

	return nil
}
