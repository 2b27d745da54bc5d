package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/models"
	"github.com/reelscan/reelscan/internal/services/settings"
)

// SettingsHandler handles scan settings API requests
type SettingsHandler struct {
	settingsService *settings.Service
	logger          arbor.ILogger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService *settings.Service, logger arbor.ILogger) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		logger:          logger,
	}
}

// GetSettingsHandler returns the current scan settings
// GET /api/settings
func (h *SettingsHandler) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settingsService.Get(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load settings")
		WriteError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	WriteJSON(w, http.StatusOK, cfg)
}

// UpdateSettingsHandler replaces the scan settings
// PUT /api/settings
func (h *SettingsHandler) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var cfg models.ScanSettings
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.settingsService.Update(r.Context(), cfg); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, cfg)
}
