package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/interfaces"
	"github.com/reelscan/reelscan/internal/models"
	"github.com/reelscan/reelscan/internal/services/notify"
	"github.com/reelscan/reelscan/internal/services/scan"
)

// ArticleHandler handles article API requests
type ArticleHandler struct {
	articleStorage interfaces.ArticleStorage
	scanService    *scan.Service
	notifyService  *notify.Service
	logger         arbor.ILogger
}

// NewArticleHandler creates a new article handler
func NewArticleHandler(articleStorage interfaces.ArticleStorage, scanService *scan.Service, notifyService *notify.Service, logger arbor.ILogger) *ArticleHandler {
	return &ArticleHandler{
		articleStorage: articleStorage,
		scanService:    scanService,
		notifyService:  notifyService,
		logger:         logger,
	}
}

// ListArticlesHandler returns articles, newest published first
// GET /api/articles?status=completed&recommendation=recommended&scan_id=x&limit=50&offset=0
func (h *ArticleHandler) ListArticlesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	opts := &interfaces.ArticleListOptions{
		Status:         models.ArticleStatus(r.URL.Query().Get("status")),
		Recommendation: models.Recommendation(r.URL.Query().Get("recommendation")),
		ScanID:         r.URL.Query().Get("scan_id"),
		Limit:          QueryInt(r, "limit", 50),
		Offset:         QueryInt(r, "offset", 0),
	}

	articles, err := h.articleStorage.ListArticles(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list articles")
		WriteError(w, http.StatusInternalServerError, "Failed to list articles")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"articles": articles,
		"count":    len(articles),
	})
}

// GetArticleHandler returns one article by id
// GET /api/articles/{id}
func (h *ArticleHandler) GetArticleHandler(w http.ResponseWriter, r *http.Request, articleID string) {
	article, err := h.articleStorage.GetArticle(r.Context(), articleID)
	if err != nil {
		h.logger.Error().Err(err).Str("article_id", articleID).Msg("Failed to get article")
		WriteError(w, http.StatusInternalServerError, "Failed to get article")
		return
	}
	if article == nil {
		WriteError(w, http.StatusNotFound, "Article not found")
		return
	}

	WriteJSON(w, http.StatusOK, article)
}

// RetryArticleHandler re-processes a failed article
// POST /api/articles/{id}/retry
func (h *ArticleHandler) RetryArticleHandler(w http.ResponseWriter, r *http.Request, articleID string) {
	err := h.scanService.RetryArticle(r.Context(), articleID)
	switch {
	case err == nil:
		WriteSuccess(w, "Article retry dispatched")
	case errors.Is(err, scan.ErrArticleNotFound):
		WriteError(w, http.StatusNotFound, "Article not found")
	case errors.Is(err, scan.ErrArticleNotFailed):
		WriteError(w, http.StatusConflict, "Article is not in failed state")
	default:
		h.logger.Error().Err(err).Str("article_id", articleID).Msg("Failed to retry article")
		WriteError(w, http.StatusInternalServerError, "Failed to retry article")
	}
}

// RetryFailedHandler re-processes every failed article
// POST /api/articles/retry-failed
func (h *ArticleHandler) RetryFailedHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	count, err := h.scanService.RetryAllFailed(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to retry failed articles")
		WriteError(w, http.StatusInternalServerError, "Failed to retry failed articles")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"count":  count,
	})
}

// SendDigestHandler sends the pending recommendation digest immediately
// POST /api/digest/send
func (h *ArticleHandler) SendDigestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	count, err := h.notifyService.SendDigest(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to send digest")
		WriteError(w, http.StatusInternalServerError, "Failed to send digest")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"articles": count,
	})
}
