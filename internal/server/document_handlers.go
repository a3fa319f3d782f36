package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"papertimes/internal/core"
	"papertimes/internal/services"
)

// UploadDocumentRequest is the body of POST /api/documents
type UploadDocumentRequest struct {
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	SourceURL string   `json:"source_url"`
	ByteSize  int64    `json:"byte_size"`
}

// DocumentListResponse is returned by GET /api/documents
type DocumentListResponse struct {
	Documents []core.Document `json:"documents"`
	Total     int             `json:"total"`
}

// handleUploadDocument handles POST /api/documents
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	var req UploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := s.documents.Upload(r.Context(), services.UploadRequest{
		OwnerID:   accountID(r),
		Title:     req.Title,
		Authors:   req.Authors,
		SourceURL: req.SourceURL,
		ByteSize:  req.ByteSize,
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, doc)
}

// handleListDocuments handles GET /api/documents
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	docs, err := s.documents.List(r.Context(), accountID(r), opts)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: len(docs)})
}

// handleGetDocument handles GET /api/documents/{id}
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), accountID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

// handleRetryDocument handles POST /api/documents/{id}/retry
func (s *Server) handleRetryDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Retry(r.Context(), accountID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, doc)
}

// handleDeleteDocument handles DELETE /api/documents/{id}
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), accountID(r), chi.URLParam(r, "id")); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
