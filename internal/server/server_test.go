package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"papertimes/internal/config"
	"papertimes/internal/core"
	"papertimes/internal/persistence"
	"papertimes/internal/services"
	"papertimes/internal/services/mocks"
	"papertimes/internal/templates"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixture struct {
	docs   *mocks.MockDocuments
	papers *mocks.MockNewspapers
	srv    *Server
}

func newFixture(t *testing.T, ping pingFunc) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		docs:   mocks.NewMockDocuments(ctrl),
		papers: mocks.NewMockNewspapers(ctrl),
	}
	if ping == nil {
		ping = func(context.Context) error { return nil }
	}
	f.srv = New(f.docs, f.papers, templates.Default(), ping, config.Server{Host: "localhost", Port: 0})
	return f
}

func (f *fixture) do(t *testing.T, method, path, account, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if account != "" {
		req.Header.Set(AccountHeader, account)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) (int, string) {
	t.Helper()
	var body struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Status, body.Error.Message
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	f = newFixture(t, func(context.Context) error { return errors.New("down") })
	rec = f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Checks["database"])
}

func TestListTemplatesIsPublic(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/templates", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body TemplateListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, len(templates.DefaultTemplates()), body.Total)
	assert.Equal(t, "classic", body.Templates[0].ID)
}

func TestRequiresAccount(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/documents", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	status, msg := errorBody(t, rec)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, msg, AccountHeader)
}

func TestUploadDocument(t *testing.T) {
	f := newFixture(t, nil)
	f.docs.EXPECT().
		Upload(gomock.Any(), services.UploadRequest{
			OwnerID:   "alice",
			Title:     "Attention",
			Authors:   []string{"Vaswani"},
			SourceURL: "https://arxiv.org/pdf/1706.03762",
			ByteSize:  1024,
		}).
		Return(&core.Document{ID: "doc-1", OwnerID: "alice", Status: core.StatusPending}, nil)

	rec := f.do(t, http.MethodPost, "/api/documents", "alice",
		`{"title":"Attention","authors":["Vaswani"],"source_url":"https://arxiv.org/pdf/1706.03762","byte_size":1024}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var doc core.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, core.StatusPending, doc.Status)
}

func TestUploadRejectsBadBody(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/api/documents", "alice", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDocumentsQuery(t *testing.T) {
	f := newFixture(t, nil)
	f.docs.EXPECT().
		List(gomock.Any(), "alice", persistence.ListOptions{Limit: 10, Offset: 20, Status: core.StatusFailed}).
		Return([]core.Document{{ID: "a"}, {ID: "b"}}, nil)

	rec := f.do(t, http.MethodGet, "/api/documents?limit=10&offset=20&status=failed", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body DocumentListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)

	rec = f.do(t, http.MethodGet, "/api/documents?limit=0", "alice", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/documents?offset=-1", "alice", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", core.ErrInvalidInput, http.StatusBadRequest},
		{"not ready", &core.NotReadyError{DocumentIDs: []string{"d1"}}, http.StatusBadRequest},
		{"quota exceeded", &core.QuotaDeniedError{Reason: core.DenyQuotaExceeded}, http.StatusForbidden},
		{"premium template", &core.QuotaDeniedError{Reason: core.DenyPremiumTemplate}, http.StatusForbidden},
		{"unknown template", core.ErrNotFound, http.StatusNotFound},
		{"conflict", core.ErrConflict, http.StatusConflict},
		{"provider", &core.ProviderError{Code: "UNAVAILABLE", Err: errors.New("503")}, http.StatusBadGateway},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.papers.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			rec := f.do(t, http.MethodPost, "/api/newspapers", "alice", `{"document_ids":["d1"],"template_id":"classic"}`)
			assert.Equal(t, tt.want, rec.Code)
			status, _ := errorBody(t, rec)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestCreateNewspaper(t *testing.T) {
	f := newFixture(t, nil)
	f.papers.EXPECT().
		Create(gomock.Any(), services.CreateRequest{
			AccountID:   "alice",
			DocumentIDs: []string{"d1", "d2"},
			TemplateID:  "classic",
			Visibility:  core.VisibilityPublic,
		}).
		Return(&core.Newspaper{ID: "n-1", Status: core.StatusPending}, nil)

	rec := f.do(t, http.MethodPost, "/api/newspapers", "alice",
		`{"document_ids":["d1","d2"],"template_id":"classic","share_visibility":"public"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var n core.Newspaper
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &n))
	assert.Equal(t, "n-1", n.ID)
}

func TestNewspaperRoutes(t *testing.T) {
	f := newFixture(t, nil)
	f.papers.EXPECT().Get(gomock.Any(), "bob", "n-1").Return(&core.Newspaper{ID: "n-1", ViewCount: 4}, nil)
	f.papers.EXPECT().SetVisibility(gomock.Any(), "alice", "n-1", core.VisibilityGroup).
		Return(&core.Newspaper{ID: "n-1", Visibility: core.VisibilityGroup}, nil)
	f.papers.EXPECT().Delete(gomock.Any(), "alice", "n-1").Return(nil)
	f.papers.EXPECT().List(gomock.Any(), "alice", persistence.ListOptions{Limit: 50}).Return([]core.Newspaper{}, nil)

	rec := f.do(t, http.MethodGet, "/api/newspapers/n-1", "bob", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/newspapers/n-1", "alice", `{"share_visibility":"group"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"share_visibility":"group"`)

	rec = f.do(t, http.MethodDelete, "/api/newspapers/n-1", "alice", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/newspapers", "alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDocumentRoutes(t *testing.T) {
	f := newFixture(t, nil)
	f.docs.EXPECT().Get(gomock.Any(), "alice", "d1").Return(nil, core.ErrNotFound)
	f.docs.EXPECT().Retry(gomock.Any(), "alice", "d2").Return(nil, core.ErrConflict)
	f.docs.EXPECT().Retry(gomock.Any(), "alice", "d3").Return(&core.Document{ID: "d3", Status: core.StatusPending}, nil)
	f.docs.EXPECT().Delete(gomock.Any(), "alice", "d4").Return(nil)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/documents/d1", "alice", "").Code)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/documents/d2/retry", "alice", "").Code)
	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/api/documents/d3/retry", "alice", "").Code)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/documents/d4", "alice", "").Code)
}

func TestRegenerateHeadline(t *testing.T) {
	f := newFixture(t, nil)
	f.papers.EXPECT().RegenerateHeadline(gomock.Any(), "some content").
		Return(core.Headline{Main: "Big News", Sub: "Small print"}, nil)
	f.papers.EXPECT().RegenerateHeadline(gomock.Any(), "short").
		Return(core.Headline{}, core.ErrInvalidInput)

	rec := f.do(t, http.MethodPost, "/api/headlines", "alice", `{"content":"some content"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var h core.Headline
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "Big News", h.Main)

	rec = f.do(t, http.MethodPost, "/api/headlines", "alice", `{"content":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
