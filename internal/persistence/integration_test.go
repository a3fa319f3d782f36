//go:build integration

package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"papertimes/internal/core"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *SQLDB
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("papertimes_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := Open(s.ctx, DriverPostgres, connStr, 10)
	s.Require().NoError(err)
	s.db = db

	_, err = NewMigrator(db).Migrate(s.ctx)
	s.Require().NoError(err)
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	for _, table := range []string{"documents", "newspapers", "accounts"} {
		_, err := s.db.db.ExecContext(s.ctx, "DELETE FROM "+table)
		s.Require().NoError(err)
	}
}

func (s *PostgresIntegrationSuite) TestDocumentRoundTrip() {
	repo := s.db.Documents()
	s.Require().NoError(repo.Create(s.ctx, &core.Document{
		ID: "doc-1", OwnerID: "alice", Title: "Paper", SourceURL: "https://example.com/a.pdf", Status: core.StatusPending,
	}))

	ok, err := repo.Transition(s.ctx, "doc-1", []core.ProcessingStatus{core.StatusPending}, core.StatusProcessing)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = repo.Complete(s.ctx, "doc-1", core.Analysis{Summary: "s", KeyPoints: []string{"k"}, ConfidenceScore: 70})
	s.Require().NoError(err)
	s.True(ok)

	got, err := repo.Get(s.ctx, "doc-1")
	s.Require().NoError(err)
	s.Equal(core.StatusCompleted, got.Status)
	s.Equal("s", got.Analysis.Summary)
}

func (s *PostgresIntegrationSuite) TestConcurrentReservationsRespectLimit() {
	const limit = 3
	_, err := s.db.Accounts().GetOrCreate(s.ctx, "alice", time.Now().UTC())
	s.Require().NoError(err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.db.WithTransaction(s.ctx, func(ctx context.Context) error {
				ok, err := s.db.Accounts().ReserveGeneration(ctx, "alice", limit)
				if err != nil || !ok {
					return err
				}
				mu.Lock()
				granted++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	s.Equal(limit, granted)
}

func (s *PostgresIntegrationSuite) TestFailAppendsHistory() {
	repo := s.db.Newspapers()
	s.Require().NoError(repo.Create(s.ctx, &core.Newspaper{
		ID: "np-1", CreatorID: "alice", SourceDocumentIDs: []string{"doc-1"}, TemplateID: "classic", Status: core.StatusProcessing,
	}))

	s.Require().NoError(repo.Fail(s.ctx, "np-1", core.ErrorRecord{Timestamp: time.Now().UTC(), Code: core.CodeInternal, Message: "x"}, 20))

	got, err := repo.Get(s.ctx, "np-1")
	s.Require().NoError(err)
	s.Equal(core.StatusFailed, got.Status)
	s.Len(got.ErrorHistory, 1)
}
