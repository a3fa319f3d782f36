package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"papertimes/internal/core"
	"papertimes/internal/persistence"
	"papertimes/internal/templates"
)

// HealthResponse is returned by /health
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// TemplateListResponse is returned by GET /api/templates
type TemplateListResponse struct {
	Templates []templates.Template `json:"templates"`
	Total     int                  `json:"total"`
}

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := s.db.Ping(r.Context()); err != nil {
		s.log.Warn("Health check failed", "error", err)
		checks["database"] = "error"
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Checks: checks})
		return
	}

	checks["database"] = "ok"
	s.respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Checks: checks})
}

// handleListTemplates handles GET /api/templates
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list := s.catalog.List()
	s.respondJSON(w, http.StatusOK, TemplateListResponse{Templates: list, Total: len(list)})
}

// listOptions reads limit, offset and status query parameters
func listOptions(r *http.Request) (persistence.ListOptions, error) {
	q := r.URL.Query()
	opts := persistence.ListOptions{Limit: 50}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			return opts, errors.New("limit must be between 1 and 200")
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("offset must be a non-negative integer")
		}
		opts.Offset = n
	}
	opts.Status = core.ProcessingStatus(q.Get("status"))
	return opts, nil
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	writeError(w, status, message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"status":  status,
			"message": message,
		},
	})
}

// respondServiceError maps a service error onto an HTTP status
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		denied   *core.QuotaDeniedError
		notReady *core.NotReadyError
		provider *core.ProviderError
	)

	switch {
	case errors.As(err, &denied):
		s.respondError(w, http.StatusForbidden, denied.Error())
	case errors.As(err, &notReady):
		s.respondError(w, http.StatusBadRequest, notReady.Error())
	case errors.Is(err, core.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, core.ErrConflict):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &provider):
		s.log.Error("AI provider failed", "error", err, "path", r.URL.Path)
		s.respondError(w, http.StatusBadGateway, "AI provider unavailable")
	default:
		s.log.Error("Request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
