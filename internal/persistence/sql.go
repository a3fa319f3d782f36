package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"papertimes/internal/core"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// SQLDB implements Database on Postgres or SQLite through sqlx.
type SQLDB struct {
	db         *sqlx.DB
	driver     string
	sb         sq.StatementBuilderType
	now        func() time.Time
	documents  *sqlDocumentRepo
	newspapers *sqlNewspaperRepo
	accounts   *sqlAccountRepo
}

// Option configures an SQLDB.
type Option func(*SQLDB)

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *SQLDB) { s.now = now }
}

// Open connects to driver/connectionString and verifies the connection.
func Open(ctx context.Context, driver, connectionString string, maxOpenConns int, opts ...Option) (*SQLDB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if connectionString == "" {
		return nil, fmt.Errorf("database connection string is required. Set DATABASE_URL or database.connection_string")
	}

	db, err := sqlx.Open(driver, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	} else {
		if maxOpenConns <= 0 {
			maxOpenConns = 25
		}
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(db, opts...), nil
}

// New wraps an open sqlx handle.
func New(db *sqlx.DB, opts ...Option) *SQLDB {
	s := &SQLDB{
		db:     db,
		driver: db.DriverName(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	var placeholder sq.PlaceholderFormat = sq.Question
	if s.driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	s.sb = sq.StatementBuilder.PlaceholderFormat(placeholder)
	for _, opt := range opts {
		opt(s)
	}

	s.documents = &sqlDocumentRepo{s}
	s.newspapers = &sqlNewspaperRepo{s}
	s.accounts = &sqlAccountRepo{s}
	return s
}

func (s *SQLDB) Documents() DocumentRepository   { return s.documents }
func (s *SQLDB) Newspapers() NewspaperRepository { return s.newspapers }
func (s *SQLDB) Accounts() AccountRepository     { return s.accounts }

// Driver returns the database driver name.
func (s *SQLDB) Driver() string { return s.driver }

func (s *SQLDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLDB) Close() error {
	return s.db.Close()
}

func (s *SQLDB) timestamp() time.Time {
	return s.now().UTC()
}

// forUpdate adds a row lock where the dialect supports one.
func (s *SQLDB) forUpdate(b sq.SelectBuilder) sq.SelectBuilder {
	if s.driver == DriverPostgres {
		return b.Suffix("FOR UPDATE")
	}
	return b
}

func (s *SQLDB) get(ctx context.Context, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return sqlx.GetContext(ctx, executor(ctx, s.db), dest, query, args...)
}

func (s *SQLDB) selectAll(ctx context.Context, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return sqlx.SelectContext(ctx, executor(ctx, s.db), dest, query, args...)
}

func (s *SQLDB) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}
	res, err := executor(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// appendHistory adds rec to a JSON-encoded error history, keeping the newest keep entries.
func appendHistory(raw string, rec core.ErrorRecord, keep int) (string, error) {
	history, err := decodeHistory(raw)
	if err != nil {
		return "", err
	}
	rec.Timestamp = rec.Timestamp.UTC()
	history = append(history, rec)
	if keep > 0 && len(history) > keep {
		history = history[len(history)-keep:]
	}
	return encodeJSON(history)
}

func decodeHistory(raw string) ([]core.ErrorRecord, error) {
	history := []core.ErrorRecord{}
	if raw == "" {
		return history, nil
	}
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("failed to decode error history: %w", err)
	}
	return history, nil
}

func decodeStrings(raw string) ([]string, error) {
	out := []string{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func jsonUnmarshal(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode json: %w", err)
	}
	return string(b), nil
}

func statusStrings(statuses []core.ProcessingStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
