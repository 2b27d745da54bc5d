package server

import (
	"net/http"
	"strings"
)

// setupRoutes registers all API routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Scan lifecycle
	mux.HandleFunc("/api/scan/start", s.app.ScanHandler.StartScanHandler)        // POST - start a scan
	mux.HandleFunc("/api/scan/running", s.app.ScanHandler.GetRunningScanHandler) // GET - active scan
	mux.HandleFunc("/api/scans", s.app.ScanHandler.ListScansHandler)             // GET - list scans
	mux.HandleFunc("/api/scans/", s.handleScanRoutes)                            // GET /{id}, POST /{id}/cancel, GET /{id}/queue

	// Articles
	mux.HandleFunc("/api/articles", s.app.ArticleHandler.ListArticlesHandler)             // GET - list articles
	mux.HandleFunc("/api/articles/retry-failed", s.app.ArticleHandler.RetryFailedHandler) // POST - retry all failed
	mux.HandleFunc("/api/articles/", s.handleArticleRoutes)                               // GET /{id}, POST /{id}/retry

	// Feeds
	mux.HandleFunc("/api/feeds", s.handleFeedsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/api/feeds/", s.handleFeedRoutes) // GET/PUT/DELETE /{id}

	// Settings and status
	mux.HandleFunc("/api/settings", s.handleSettingsRoute)                     // GET, PUT
	mux.HandleFunc("/api/digest/send", s.app.ArticleHandler.SendDigestHandler) // POST - send digest now
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)        // GET - service status

	return mux
}

// handleScanRoutes routes /api/scans/{id} and subresources
func (s *Server) handleScanRoutes(w http.ResponseWriter, r *http.Request) {
	id, action := splitResourcePath(r.URL.Path, "/api/scans/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.app.ScanHandler.GetScanHandler(w, r, id)
	case action == "cancel" && r.Method == http.MethodPost:
		s.app.ScanHandler.CancelScanHandler(w, r, id)
	case action == "queue" && r.Method == http.MethodGet:
		s.app.ScanHandler.GetQueueHandler(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleArticleRoutes routes /api/articles/{id} and subresources
func (s *Server) handleArticleRoutes(w http.ResponseWriter, r *http.Request) {
	id, action := splitResourcePath(r.URL.Path, "/api/articles/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.app.ArticleHandler.GetArticleHandler(w, r, id)
	case action == "retry" && r.Method == http.MethodPost:
		s.app.ArticleHandler.RetryArticleHandler(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleFeedsRoute routes the /api/feeds collection
func (s *Server) handleFeedsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.FeedHandler.ListFeedsHandler(w, r)
	case http.MethodPost:
		s.app.FeedHandler.CreateFeedHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleFeedRoutes routes /api/feeds/{id}
func (s *Server) handleFeedRoutes(w http.ResponseWriter, r *http.Request) {
	id, action := splitResourcePath(r.URL.Path, "/api/feeds/")
	if id == "" || action != "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.app.FeedHandler.GetFeedHandler(w, r, id)
	case http.MethodPut:
		s.app.FeedHandler.UpdateFeedHandler(w, r, id)
	case http.MethodDelete:
		s.app.FeedHandler.DeleteFeedHandler(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSettingsRoute routes /api/settings
func (s *Server) handleSettingsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.SettingsHandler.GetSettingsHandler(w, r)
	case http.MethodPut:
		s.app.SettingsHandler.UpdateSettingsHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// splitResourcePath splits "/api/xxx/{id}[/{action}]" into id and action.
func splitResourcePath(path, prefix string) (id, action string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) > 1 {
		action = parts[1]
	}
	return id, action
}
