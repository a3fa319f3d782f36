package services_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"papertimes/internal/core"
	"papertimes/internal/persistence"
	"papertimes/internal/queue"
	"papertimes/internal/quota"
	"papertimes/internal/services"
	"papertimes/internal/templates"
)

type stubHeadlines struct {
	got string
}

func (h *stubHeadlines) Write(_ context.Context, content string) (core.Headline, error) {
	h.got = content
	return core.Headline{Main: "Main", Sub: "Sub"}, nil
}

type ServicesSuite struct {
	suite.Suite
	ctx        context.Context
	db         *persistence.SQLDB
	q          *queue.Memory
	now        time.Time
	seq        int
	documents  *services.DocumentService
	newspapers *services.NewspaperService
	headlines  *stubHeadlines
}

func TestServicesSuite(t *testing.T) {
	suite.Run(t, new(ServicesSuite))
}

func (s *ServicesSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	s.seq = 0

	clock := func() time.Time { return s.now }
	db, err := persistence.Open(s.ctx, persistence.DriverSQLite, filepath.Join(s.T().TempDir(), "s.db"), 0, persistence.WithClock(clock))
	s.Require().NoError(err)
	_, err = persistence.NewMigrator(db).Migrate(s.ctx)
	s.Require().NoError(err)
	s.db = db
	s.q = queue.NewMemory(64)
	s.headlines = &stubHeadlines{}

	opts := []services.Option{
		services.WithClock(clock),
		services.WithIDGenerator(func() string {
			s.seq++
			return fmt.Sprintf("id-%d", s.seq)
		}),
	}
	guard := quota.NewGuard(db.Accounts(), quota.DefaultFreeLimit, quota.WithClock(clock))
	s.documents = services.NewDocumentService(db, s.q, opts...)
	s.newspapers = services.NewNewspaperService(db, s.q, templates.Default(), guard, s.headlines, opts...)
}

func (s *ServicesSuite) TearDownTest() {
	_ = s.q.Close()
	s.Require().NoError(s.db.Close())
}

// drain returns the jobs enqueued so far.
func (s *ServicesSuite) drain() []queue.Job {
	var jobs []queue.Job
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	for s.q.Len() > 0 {
		_ = s.q.Consume(ctx, func(_ context.Context, job queue.Job) error {
			jobs = append(jobs, job)
			if s.q.Len() == 0 {
				cancel()
			}
			return nil
		})
	}
	return jobs
}

func (s *ServicesSuite) upload(owner string) *core.Document {
	doc, err := s.documents.Upload(s.ctx, services.UploadRequest{
		OwnerID:   owner,
		Title:     "A Paper",
		Authors:   []string{"Author"},
		SourceURL: "https://papers.example/a.pdf",
		ByteSize:  2048,
	})
	s.Require().NoError(err)
	return doc
}

func (s *ServicesSuite) completed(owner string) *core.Document {
	doc := s.upload(owner)
	repo := s.db.Documents()
	_, err := repo.Transition(s.ctx, doc.ID, []core.ProcessingStatus{core.StatusPending}, core.StatusProcessing)
	s.Require().NoError(err)
	ok, err := repo.Complete(s.ctx, doc.ID, core.Analysis{Summary: "s"})
	s.Require().NoError(err)
	s.Require().True(ok)
	return doc
}

func (s *ServicesSuite) setCount(account string, n int) {
	_, err := s.db.Accounts().GetOrCreate(s.ctx, account, quota.PeriodStart(s.now))
	s.Require().NoError(err)
	for i := 0; i < n; i++ {
		ok, err := s.db.Accounts().ReserveGeneration(s.ctx, account, 1000)
		s.Require().NoError(err)
		s.Require().True(ok)
	}
}

func (s *ServicesSuite) count(account string) int {
	acct, err := s.db.Accounts().GetOrCreate(s.ctx, account, quota.PeriodStart(s.now))
	s.Require().NoError(err)
	return acct.GenerationCount
}

func (s *ServicesSuite) TestUploadEnqueuesOnce() {
	doc := s.upload("alice")
	s.Equal(core.StatusPending, doc.Status)

	jobs := s.drain()
	s.Require().Len(jobs, 1)
	s.Equal(queue.KindAnalyzeDocument, jobs[0].Kind)
	s.Equal(doc.ID, jobs[0].ID)

	got, err := s.documents.Get(s.ctx, "alice", doc.ID)
	s.Require().NoError(err)
	s.Equal(core.StatusPending, got.Status)

	_, err = s.documents.Get(s.ctx, "bob", doc.ID)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *ServicesSuite) TestUploadValidation() {
	tests := []struct {
		name string
		req  services.UploadRequest
	}{
		{"missing owner", services.UploadRequest{SourceURL: "https://x/a.pdf"}},
		{"missing url", services.UploadRequest{OwnerID: "alice"}},
		{"bad scheme", services.UploadRequest{OwnerID: "alice", SourceURL: "ftp://x/a.pdf"}},
		{"negative size", services.UploadRequest{OwnerID: "alice", SourceURL: "https://x/a.pdf", ByteSize: -1}},
		{"local path", services.UploadRequest{OwnerID: "alice", SourceURL: "/etc/passwd"}},
		{"file url", services.UploadRequest{OwnerID: "alice", SourceURL: "file:///etc/passwd"}},
		{"relative path", services.UploadRequest{OwnerID: "alice", SourceURL: ".env"}},
		{"missing host", services.UploadRequest{OwnerID: "alice", SourceURL: "https:///a.pdf"}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.documents.Upload(s.ctx, tt.req)
			s.ErrorIs(err, core.ErrInvalidInput)
		})
	}
	s.Equal(0, s.q.Len())
}

func (s *ServicesSuite) TestUploadEnqueueFailureMarksFailed() {
	s.Require().NoError(s.q.Close())

	doc, err := s.documents.Upload(s.ctx, services.UploadRequest{OwnerID: "alice", SourceURL: "https://x/a.pdf"})
	s.Require().Error(err)
	s.Require().NotNil(doc)

	got, err := s.db.Documents().Get(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(core.StatusFailed, got.Status)
	s.Equal(core.CodeEnqueueFailed, got.LastError().Code)
}

func (s *ServicesSuite) TestRetry() {
	doc := s.upload("alice")
	s.drain()

	_, err := s.documents.Retry(s.ctx, "alice", doc.ID)
	s.ErrorIs(err, core.ErrConflict)

	s.Require().NoError(s.db.Documents().Fail(s.ctx, doc.ID, core.ErrorRecord{Timestamp: s.now, Code: core.CodeFetch, Message: "404"}, 20))
	_, err = s.documents.Retry(s.ctx, "bob", doc.ID)
	s.ErrorIs(err, core.ErrNotFound)

	retried, err := s.documents.Retry(s.ctx, "alice", doc.ID)
	s.Require().NoError(err)
	s.Equal(core.StatusPending, retried.Status)
	s.Len(retried.ErrorHistory, 1, "history survives a retry")
	s.Len(s.drain(), 1)
}

func (s *ServicesSuite) TestDeleteAndList() {
	a := s.upload("alice")
	s.upload("alice")
	s.upload("bob")

	docs, err := s.documents.List(s.ctx, "alice", persistence.ListOptions{})
	s.Require().NoError(err)
	s.Len(docs, 2)

	_, err = s.documents.List(s.ctx, "alice", persistence.ListOptions{Status: "bogus"})
	s.ErrorIs(err, core.ErrInvalidInput)

	s.ErrorIs(s.documents.Delete(s.ctx, "bob", a.ID), core.ErrNotFound)
	s.Require().NoError(s.documents.Delete(s.ctx, "alice", a.ID))
	docs, err = s.documents.List(s.ctx, "alice", persistence.ListOptions{})
	s.Require().NoError(err)
	s.Len(docs, 1)
}

func (s *ServicesSuite) TestRequeueStaleDocuments() {
	stuck := s.upload("alice")
	_, err := s.db.Documents().Transition(s.ctx, stuck.ID, []core.ProcessingStatus{core.StatusPending}, core.StatusProcessing)
	s.Require().NoError(err)
	s.drain()

	s.now = s.now.Add(10 * time.Minute)
	fresh := s.upload("alice")
	s.drain()

	n, err := s.documents.RequeueStale(s.ctx, 5*time.Minute)
	s.Require().NoError(err)
	s.Equal(1, n)

	jobs := s.drain()
	s.Require().Len(jobs, 1)
	s.Equal(stuck.ID, jobs[0].ID)

	got, err := s.db.Documents().Get(s.ctx, stuck.ID)
	s.Require().NoError(err)
	s.Equal(core.StatusPending, got.Status)

	got, err = s.db.Documents().Get(s.ctx, fresh.ID)
	s.Require().NoError(err)
	s.Equal(core.StatusPending, got.Status)
}

// A free account at 2 of 3 generations with a free template is allowed.
func (s *ServicesSuite) TestCreateAllowedAtCountTwo() {
	doc := s.completed("alice")
	s.drain()
	s.setCount("alice", 2)

	n, err := s.newspapers.Create(s.ctx, services.CreateRequest{
		AccountID:   "alice",
		DocumentIDs: []string{doc.ID},
		TemplateID:  "classic",
	})
	s.Require().NoError(err)
	s.Equal(core.StatusPending, n.Status)
	s.Equal(core.VisibilityPrivate, n.Visibility)
	s.Equal(3, s.count("alice"))

	jobs := s.drain()
	s.Require().Len(jobs, 1)
	s.Equal(queue.Job{Kind: queue.KindGenerateNewspaper, ID: n.ID, EnqueuedAt: s.now}, jobs[0])

	stored, err := s.db.Newspapers().Get(s.ctx, n.ID)
	s.Require().NoError(err)
	s.Equal(core.StatusPending, stored.Status)
}

// A newspaper over a document that is still processing is rejected before quota is touched.
func (s *ServicesSuite) TestCreateRejectsUnreadyDocuments() {
	ready := s.completed("alice")
	busy := s.upload("alice")
	_, err := s.db.Documents().Transition(s.ctx, busy.ID, []core.ProcessingStatus{core.StatusPending}, core.StatusProcessing)
	s.Require().NoError(err)
	s.drain()

	_, err = s.newspapers.Create(s.ctx, services.CreateRequest{
		AccountID:   "alice",
		DocumentIDs: []string{ready.ID, busy.ID},
		TemplateID:  "classic",
	})
	var notReady *core.NotReadyError
	s.Require().ErrorAs(err, &notReady)
	s.Equal([]string{busy.ID}, notReady.DocumentIDs)

	list, err := s.newspapers.List(s.ctx, "alice", persistence.ListOptions{})
	s.Require().NoError(err)
	s.Empty(list)
	s.Equal(0, s.count("alice"))
	s.Equal(0, s.q.Len())
}

func (s *ServicesSuite) TestCreateValidation() {
	doc := s.completed("alice")
	other := s.completed("bob")
	s.drain()

	tests := []struct {
		name string
		req  services.CreateRequest
		want error
	}{
		{"no documents", services.CreateRequest{AccountID: "alice", TemplateID: "classic"}, core.ErrInvalidInput},
		{"duplicate documents", services.CreateRequest{AccountID: "alice", DocumentIDs: []string{doc.ID, doc.ID}, TemplateID: "classic"}, core.ErrInvalidInput},
		{"bad visibility", services.CreateRequest{AccountID: "alice", DocumentIDs: []string{doc.ID}, TemplateID: "classic", Visibility: "world"}, core.ErrInvalidInput},
		{"unknown template", services.CreateRequest{AccountID: "alice", DocumentIDs: []string{doc.ID}, TemplateID: "nope"}, core.ErrNotFound},
		{"missing document", services.CreateRequest{AccountID: "alice", DocumentIDs: []string{"missing"}, TemplateID: "classic"}, core.ErrNotFound},
		{"someone else's document", services.CreateRequest{AccountID: "alice", DocumentIDs: []string{other.ID}, TemplateID: "classic"}, core.ErrNotFound},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.newspapers.Create(s.ctx, tt.req)
			s.ErrorIs(err, tt.want)
		})
	}
	s.Equal(0, s.q.Len())
}

func (s *ServicesSuite) TestCreateQuotaDenials() {
	doc := s.completed("alice")
	s.drain()

	_, err := s.newspapers.Create(s.ctx, services.CreateRequest{AccountID: "alice", DocumentIDs: []string{doc.ID}, TemplateID: "broadsheet"})
	var denied *core.QuotaDeniedError
	s.Require().ErrorAs(err, &denied)
	s.Equal(core.DenyPremiumTemplate, denied.Reason)
	s.Equal(0, s.count("alice"))

	s.setCount("alice", 3)
	_, err = s.newspapers.Create(s.ctx, services.CreateRequest{AccountID: "alice", DocumentIDs: []string{doc.ID}, TemplateID: "classic"})
	s.Require().ErrorAs(err, &denied)
	s.Equal(core.DenyQuotaExceeded, denied.Reason)
	s.Equal(3, s.count("alice"))

	list, err := s.newspapers.List(s.ctx, "alice", persistence.ListOptions{})
	s.Require().NoError(err)
	s.Empty(list)

	// Premium accounts use premium templates without limit.
	s.Require().NoError(s.db.Accounts().SetTier(s.ctx, "alice", core.TierPremium))
	_, err = s.newspapers.Create(s.ctx, services.CreateRequest{AccountID: "alice", DocumentIDs: []string{doc.ID}, TemplateID: "broadsheet"})
	s.Require().NoError(err)
	s.Equal(4, s.count("alice"))
}

func (s *ServicesSuite) TestConcurrentCreateAtLastSlot() {
	doc := s.completed("alice")
	s.drain()
	s.setCount("alice", 2)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		denied  int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.newspapers.Create(s.ctx, services.CreateRequest{AccountID: "alice", DocumentIDs: []string{doc.ID}, TemplateID: "classic"})
			mu.Lock()
			defer mu.Unlock()
			var qd *core.QuotaDeniedError
			switch {
			case err == nil:
				created++
			case errorsAs(err, &qd):
				denied++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, created)
	s.Equal(4, denied)
	s.Equal(3, s.count("alice"))
}

func (s *ServicesSuite) TestCreateEnqueueFailureMarksFailed() {
	doc := s.completed("alice")
	s.drain()
	s.Require().NoError(s.q.Close())

	n, err := s.newspapers.Create(s.ctx, services.CreateRequest{AccountID: "alice", DocumentIDs: []string{doc.ID}, TemplateID: "classic"})
	s.Require().Error(err)
	s.Require().NotNil(n)

	stored, err := s.db.Newspapers().Get(s.ctx, n.ID)
	s.Require().NoError(err)
	s.Equal(core.StatusFailed, stored.Status)
	s.Equal(core.CodeEnqueueFailed, stored.ErrorHistory[0].Code)
}

func (s *ServicesSuite) TestVisibilityAndViews() {
	doc := s.completed("alice")
	n, err := s.newspapers.Create(s.ctx, services.CreateRequest{AccountID: "alice", DocumentIDs: []string{doc.ID}, TemplateID: "classic"})
	s.Require().NoError(err)

	_, err = s.newspapers.Get(s.ctx, "bob", n.ID)
	s.ErrorIs(err, core.ErrNotFound, "private newspapers are hidden")

	got, err := s.newspapers.Get(s.ctx, "alice", n.ID)
	s.Require().NoError(err)
	s.Equal(0, got.ViewCount, "creator views are not counted")

	_, err = s.newspapers.SetVisibility(s.ctx, "bob", n.ID, core.VisibilityPublic)
	s.ErrorIs(err, core.ErrNotFound)
	_, err = s.newspapers.SetVisibility(s.ctx, "alice", n.ID, "world")
	s.ErrorIs(err, core.ErrInvalidInput)

	updated, err := s.newspapers.SetVisibility(s.ctx, "alice", n.ID, core.VisibilityGroup)
	s.Require().NoError(err)
	s.Equal(core.VisibilityGroup, updated.Visibility)

	got, err = s.newspapers.Get(s.ctx, "bob", n.ID)
	s.Require().NoError(err)
	s.Equal(1, got.ViewCount)
	got, err = s.newspapers.Get(s.ctx, "carol", n.ID)
	s.Require().NoError(err)
	s.Equal(2, got.ViewCount)

	s.ErrorIs(s.newspapers.Delete(s.ctx, "bob", n.ID), core.ErrNotFound)
	s.Require().NoError(s.newspapers.Delete(s.ctx, "alice", n.ID))
	_, err = s.newspapers.Get(s.ctx, "alice", n.ID)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *ServicesSuite) TestRequeueStaleNewspapers() {
	doc := s.completed("alice")
	n, err := s.newspapers.Create(s.ctx, services.CreateRequest{AccountID: "alice", DocumentIDs: []string{doc.ID}, TemplateID: "classic"})
	s.Require().NoError(err)
	_, err = s.db.Newspapers().Transition(s.ctx, n.ID, []core.ProcessingStatus{core.StatusPending}, core.StatusProcessing)
	s.Require().NoError(err)
	s.drain()

	s.now = s.now.Add(time.Hour)
	count, err := s.newspapers.RequeueStale(s.ctx, 30*time.Minute)
	s.Require().NoError(err)
	s.Equal(1, count)

	jobs := s.drain()
	s.Require().Len(jobs, 1)
	s.Equal(queue.KindGenerateNewspaper, jobs[0].Kind)
}

func (s *ServicesSuite) TestRegenerateHeadlineDelegates() {
	content := strings.Repeat("content ", 10)
	h, err := s.newspapers.RegenerateHeadline(s.ctx, content)
	s.Require().NoError(err)
	s.Equal(core.Headline{Main: "Main", Sub: "Sub"}, h)
	s.Equal(content, s.headlines.got)
}

func errorsAs(err error, target any) bool {
	return errors.As(err, target)
}
