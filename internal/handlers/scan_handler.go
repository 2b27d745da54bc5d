package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/services/scan"
	"github.com/reelscan/reelscan/internal/services/settings"
)

// ScanHandler handles scan lifecycle API requests
type ScanHandler struct {
	scanService     *scan.Service
	settingsService *settings.Service
	logger          arbor.ILogger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(scanService *scan.Service, settingsService *settings.Service, logger arbor.ILogger) *ScanHandler {
	return &ScanHandler{
		scanService:     scanService,
		settingsService: settingsService,
		logger:          logger,
	}
}

// startScanRequest is the optional body for StartScanHandler. Omitted fields
// fall back to the stored scan settings.
type startScanRequest struct {
	FeedCount   *int     `json:"feed_count"`
	DaysBack    *int     `json:"days_back"`
	Parallelism *int     `json:"parallelism"`
	FilterTags  []string `json:"filter_tags"`
	Delay       string   `json:"delay"` // Optional ingestion delay, e.g. "30s"
}

// StartScanHandler starts a new scan
// POST /api/scan/start
func (h *ScanHandler) StartScanHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()

	cfg, err := h.settingsService.Get(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load settings for scan start")
		WriteError(w, http.StatusInternalServerError, "Failed to load scan settings")
		return
	}
	opts := cfg.ToScanOptions()
	var delay time.Duration

	if r.Body != nil && r.ContentLength != 0 {
		var req startScanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.FeedCount != nil {
			opts.FeedCount = *req.FeedCount
		}
		if req.DaysBack != nil {
			opts.DaysBack = *req.DaysBack
		}
		if req.Parallelism != nil {
			opts.Parallelism = *req.Parallelism
		}
		if req.FilterTags != nil {
			opts.FilterTags = req.FilterTags
		}
		if req.Delay != "" {
			delay, err = time.ParseDuration(req.Delay)
			if err != nil || delay < 0 {
				WriteError(w, http.StatusBadRequest, "Invalid delay")
				return
			}
		}
	}

	started, err := h.scanService.StartScan(ctx, opts, delay)
	if err != nil {
		if errors.Is(err, scan.ErrScanAlreadyRunning) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Failed to start scan")
		WriteError(w, http.StatusInternalServerError, "Failed to start scan")
		return
	}

	WriteJSON(w, http.StatusAccepted, started)
}

// GetRunningScanHandler returns the currently active scan, if any
// GET /api/scan/running
func (h *ScanHandler) GetRunningScanHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	active, err := h.scanService.GetRunningScan(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to get running scan")
		WriteError(w, http.StatusInternalServerError, "Failed to get running scan")
		return
	}

	if active == nil {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"running": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"running": true, "scan": active})
}

// ListScansHandler returns scans newest first
// GET /api/scans?limit=50&offset=0
func (h *ScanHandler) ListScansHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := QueryInt(r, "limit", 50)
	offset := QueryInt(r, "offset", 0)

	scans, err := h.scanService.ListScans(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list scans")
		WriteError(w, http.StatusInternalServerError, "Failed to list scans")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scans": scans,
		"count": len(scans),
	})
}

// GetScanHandler returns one scan by id
// GET /api/scans/{id}
func (h *ScanHandler) GetScanHandler(w http.ResponseWriter, r *http.Request, scanID string) {
	found, err := h.scanService.GetScanByID(r.Context(), scanID)
	if err != nil {
		if errors.Is(err, scan.ErrScanNotFound) {
			WriteError(w, http.StatusNotFound, "Scan not found")
			return
		}
		h.logger.Error().Err(err).Str("scan_id", scanID).Msg("Failed to get scan")
		WriteError(w, http.StatusInternalServerError, "Failed to get scan")
		return
	}

	WriteJSON(w, http.StatusOK, found)
}

// CancelScanHandler cancels an active scan
// POST /api/scans/{id}/cancel
func (h *ScanHandler) CancelScanHandler(w http.ResponseWriter, r *http.Request, scanID string) {
	err := h.scanService.CancelScan(r.Context(), scanID)
	switch {
	case err == nil:
		WriteSuccess(w, "Scan cancelled")
	case errors.Is(err, scan.ErrScanNotFound):
		WriteError(w, http.StatusNotFound, "Scan not found")
	case errors.Is(err, scan.ErrScanCompleted):
		WriteError(w, http.StatusConflict, "Scan already completed")
	default:
		h.logger.Error().Err(err).Str("scan_id", scanID).Msg("Failed to cancel scan")
		WriteError(w, http.StatusInternalServerError, "Failed to cancel scan")
	}
}

// GetQueueHandler returns the remaining queue length for a scan
// GET /api/scans/{id}/queue
func (h *ScanHandler) GetQueueHandler(w http.ResponseWriter, r *http.Request, scanID string) {
	remaining, err := h.scanService.QueueLength(r.Context(), scanID)
	if err != nil {
		h.logger.Error().Err(err).Str("scan_id", scanID).Msg("Failed to get queue length")
		WriteError(w, http.StatusInternalServerError, "Failed to get queue length")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scan_id":   scanID,
		"remaining": remaining,
	})
}
