package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/common"
	"github.com/reelscan/reelscan/internal/interfaces"
	"github.com/reelscan/reelscan/internal/models"
	"github.com/reelscan/reelscan/internal/services/scan"
)

// StatusHandler reports service health and pipeline counters
type StatusHandler struct {
	store       interfaces.StorageManager
	scanService *scan.Service
	logger      arbor.ILogger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(store interfaces.StorageManager, scanService *scan.Service, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		store:       store,
		scanService: scanService,
		logger:      logger,
	}
}

// GetStatusHandler returns service status and article counters
// GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()

	counts := make(map[string]int)
	for _, status := range []models.ArticleStatus{
		models.ArticleStatusPending,
		models.ArticleStatusProcessing,
		models.ArticleStatusCompleted,
		models.ArticleStatusFailed,
	} {
		count, err := h.store.ArticleStorage().CountByStatus(ctx, status)
		if err != nil {
			h.logger.Warn().Err(err).Str("status", string(status)).Msg("Failed to count articles")
			continue
		}
		counts[string(status)] = count
	}

	active, err := h.scanService.GetRunningScan(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to load active scan for status")
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"version":    common.GetVersion(),
		"goroutines": common.GetGoroutineCount(),
		"articles":   counts,
		"scan":       active,
	})
}
