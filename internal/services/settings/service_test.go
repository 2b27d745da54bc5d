package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/common"
	"github.com/reelscan/reelscan/internal/models"
	"github.com/reelscan/reelscan/internal/storage/badger"
)

func newTestSettings(t *testing.T) *Service {
	t.Helper()
	logger := arbor.NewLogger()
	store, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewService(store.KeyValueStorage(), logger)
}

func TestGetReturnsDefaultsWhenUnset(t *testing.T) {
	service := newTestSettings(t)

	cfg, err := service.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.DefaultScanSettings(), cfg)
}

func TestUpdateRoundTrip(t *testing.T) {
	service := newTestSettings(t)
	ctx := context.Background()

	cfg := models.DefaultScanSettings()
	cfg.Enabled = true
	cfg.IntervalMinutes = 30
	cfg.Parallelism = 5
	cfg.FilterTags = []string{"tech"}
	require.NoError(t, service.Update(ctx, cfg))

	stored, err := service.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, cfg, stored)
}

func TestUpdateRejectsInvalidSettings(t *testing.T) {
	service := newTestSettings(t)
	ctx := context.Background()

	cfg := models.DefaultScanSettings()
	cfg.IntervalMinutes = 1 // below minimum
	require.Error(t, service.Update(ctx, cfg))

	cfg = models.DefaultScanSettings()
	cfg.Parallelism = 64 // above maximum
	require.Error(t, service.Update(ctx, cfg))

	cfg = models.DefaultScanSettings()
	cfg.DigestWebhookURL = "not-a-url"
	require.Error(t, service.Update(ctx, cfg))

	// Original defaults must survive failed updates.
	stored, err := service.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, models.DefaultScanSettings(), stored)
}
