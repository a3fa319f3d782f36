package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"papertimes/internal/core"
	"papertimes/internal/services"
)

// CreateNewspaperRequest is the body of POST /api/newspapers
type CreateNewspaperRequest struct {
	DocumentIDs []string        `json:"document_ids"`
	TemplateID  string          `json:"template_id"`
	Visibility  core.Visibility `json:"share_visibility"`
}

// UpdateNewspaperRequest is the body of PATCH /api/newspapers/{id}
type UpdateNewspaperRequest struct {
	Visibility core.Visibility `json:"share_visibility"`
}

// HeadlineRequest is the body of POST /api/headlines
type HeadlineRequest struct {
	Content string `json:"content"`
}

// NewspaperListResponse is returned by GET /api/newspapers
type NewspaperListResponse struct {
	Newspapers []core.Newspaper `json:"newspapers"`
	Total      int              `json:"total"`
}

// handleCreateNewspaper handles POST /api/newspapers
func (s *Server) handleCreateNewspaper(w http.ResponseWriter, r *http.Request) {
	var req CreateNewspaperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	n, err := s.newspapers.Create(r.Context(), services.CreateRequest{
		AccountID:   accountID(r),
		DocumentIDs: req.DocumentIDs,
		TemplateID:  req.TemplateID,
		Visibility:  req.Visibility,
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, n)
}

// handleListNewspapers handles GET /api/newspapers
func (s *Server) handleListNewspapers(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	papers, err := s.newspapers.List(r.Context(), accountID(r), opts)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, NewspaperListResponse{Newspapers: papers, Total: len(papers)})
}

// handleGetNewspaper handles GET /api/newspapers/{id}
func (s *Server) handleGetNewspaper(w http.ResponseWriter, r *http.Request) {
	n, err := s.newspapers.Get(r.Context(), accountID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, n)
}

// handleUpdateNewspaper handles PATCH /api/newspapers/{id}
func (s *Server) handleUpdateNewspaper(w http.ResponseWriter, r *http.Request) {
	var req UpdateNewspaperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	n, err := s.newspapers.SetVisibility(r.Context(), accountID(r), chi.URLParam(r, "id"), req.Visibility)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, n)
}

// handleDeleteNewspaper handles DELETE /api/newspapers/{id}
func (s *Server) handleDeleteNewspaper(w http.ResponseWriter, r *http.Request) {
	if err := s.newspapers.Delete(r.Context(), accountID(r), chi.URLParam(r, "id")); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRegenerateHeadline handles POST /api/headlines
func (s *Server) handleRegenerateHeadline(w http.ResponseWriter, r *http.Request) {
	var req HeadlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h, err := s.newspapers.RegenerateHeadline(r.Context(), req.Content)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, h)
}
