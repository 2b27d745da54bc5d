package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/interfaces"
	"github.com/reelscan/reelscan/internal/models"
)

// FeedHandler handles feed source API requests
type FeedHandler struct {
	feedStorage interfaces.FeedStorage
	logger      arbor.ILogger
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(feedStorage interfaces.FeedStorage, logger arbor.ILogger) *FeedHandler {
	return &FeedHandler{
		feedStorage: feedStorage,
		logger:      logger,
	}
}

type feedRequest struct {
	Name    string   `json:"name"`
	XMLURL  string   `json:"xml_url"`
	HTMLURL string   `json:"html_url"`
	Type    string   `json:"type"`
	Tags    []string `json:"tags"`
}

// ListFeedsHandler returns feeds, optionally filtered by tags
// GET /api/feeds?tags=tech,science
func (h *FeedHandler) ListFeedsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var tags []string
	if raw := r.URL.Query().Get("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	feeds, err := h.feedStorage.ListFeedsByTags(ctx, tags)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list feeds")
		WriteError(w, http.StatusInternalServerError, "Failed to list feeds")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"feeds": feeds,
		"count": len(feeds),
	})
}

// CreateFeedHandler adds a new feed source
// POST /api/feeds
func (h *FeedHandler) CreateFeedHandler(w http.ResponseWriter, r *http.Request) {
	var req feedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.XMLURL == "" {
		WriteError(w, http.StatusBadRequest, "xml_url is required")
		return
	}
	if req.Name == "" {
		req.Name = req.XMLURL
	}

	feed := models.NewFeed(req.Name, req.XMLURL, req.HTMLURL, req.Tags)
	feed.Type = req.Type

	if err := h.feedStorage.SaveFeed(r.Context(), feed); err != nil {
		h.logger.Error().Err(err).Str("xml_url", req.XMLURL).Msg("Failed to create feed")
		WriteError(w, http.StatusInternalServerError, "Failed to create feed")
		return
	}

	WriteJSON(w, http.StatusCreated, feed)
}

// GetFeedHandler returns one feed by id
// GET /api/feeds/{id}
func (h *FeedHandler) GetFeedHandler(w http.ResponseWriter, r *http.Request, feedID string) {
	feed, err := h.feedStorage.GetFeed(r.Context(), feedID)
	if err != nil {
		h.logger.Error().Err(err).Str("feed_id", feedID).Msg("Failed to get feed")
		WriteError(w, http.StatusInternalServerError, "Failed to get feed")
		return
	}
	if feed == nil {
		WriteError(w, http.StatusNotFound, "Feed not found")
		return
	}

	WriteJSON(w, http.StatusOK, feed)
}

// UpdateFeedHandler updates an existing feed's editable fields. Health
// fields are owned by ingestion and are not writable here.
// PUT /api/feeds/{id}
func (h *FeedHandler) UpdateFeedHandler(w http.ResponseWriter, r *http.Request, feedID string) {
	ctx := r.Context()

	feed, err := h.feedStorage.GetFeed(ctx, feedID)
	if err != nil {
		h.logger.Error().Err(err).Str("feed_id", feedID).Msg("Failed to load feed for update")
		WriteError(w, http.StatusInternalServerError, "Failed to update feed")
		return
	}
	if feed == nil {
		WriteError(w, http.StatusNotFound, "Feed not found")
		return
	}

	var req feedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name != "" {
		feed.Name = req.Name
	}
	if req.XMLURL != "" {
		feed.XMLURL = req.XMLURL
	}
	if req.HTMLURL != "" {
		feed.HTMLURL = req.HTMLURL
	}
	if req.Type != "" {
		feed.Type = req.Type
	}
	if req.Tags != nil {
		feed.Tags = req.Tags
	}

	if err := h.feedStorage.SaveFeed(ctx, feed); err != nil {
		h.logger.Error().Err(err).Str("feed_id", feedID).Msg("Failed to save updated feed")
		WriteError(w, http.StatusInternalServerError, "Failed to update feed")
		return
	}

	WriteJSON(w, http.StatusOK, feed)
}

// DeleteFeedHandler removes a feed source
// DELETE /api/feeds/{id}
func (h *FeedHandler) DeleteFeedHandler(w http.ResponseWriter, r *http.Request, feedID string) {
	if err := h.feedStorage.DeleteFeed(r.Context(), feedID); err != nil {
		h.logger.Error().Err(err).Str("feed_id", feedID).Msg("Failed to delete feed")
		WriteError(w, http.StatusInternalServerError, "Failed to delete feed")
		return
	}
	WriteSuccess(w, "Feed deleted")
}
