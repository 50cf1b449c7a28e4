package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"

	appconfig "github.com/GTDGit/groupbuy_api/internal/config"
)

// writerLockKey is the advisory lock every Exec holds, serializing writers
// the same way the file store's single writer does.
const writerLockKey = 7261001

// PostgresStore keeps documents in the documents table (see migrations/).
// Insertion order is the seq column.
type PostgresStore struct {
	db *sqlx.DB
}

type pgTxKey struct{}

type documentRow struct {
	ID   string `db:"id"`
	Body []byte `db:"body"`
}

// OpenPostgres establishes a PostgreSQL connection using the provided configuration.
// It applies a small retry strategy to handle transient bootstrapping issues
// (e.g., DB container starting up).
func OpenPostgres(cfg *appconfig.DatabaseConfig) (*PostgresStore, error) {
	if cfg == nil {
		return nil, errors.New("nil database config")
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)

	// Retry policy: up to 5 attempts, exponential backoff starting at 500ms.
	const (
		maxAttempts = 5
		baseDelay   = 500 * time.Millisecond
	)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		db, err := sqlx.Open("postgres", dsn)
		if err != nil {
			lastErr = err
			sleepWithBackoff(attempt, baseDelay)
			continue
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()
		if lastErr == nil {
			return &PostgresStore{db: db}, nil
		}

		log.Warn().Err(lastErr).Int("attempt", attempt).Msg("Database ping failed, retrying")
		_ = db.Close()
		sleepWithBackoff(attempt, baseDelay)
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxAttempts, lastErr)
}

// DB exposes the underlying handle for migrations.
func (s *PostgresStore) DB() *sql.DB { return s.db.DB }

func (s *PostgresStore) Driver() string { return "postgres" }

func (s *PostgresStore) q(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(pgTxKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(pgTxKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, writerLockKey); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("acquire writer lock: %w", err)
	}
	if err := fn(context.WithValue(ctx, pgTxKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, coll Collection) ([]Document, error) {
	if err := checkCollection(coll); err != nil {
		return nil, err
	}
	var rows []documentRow
	err := sqlx.SelectContext(ctx, s.q(ctx), &rows, `
		SELECT id, body FROM documents
		WHERE collection = $1
		ORDER BY seq
	`, string(coll))
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(rows))
	for _, r := range rows {
		out = append(out, Document{ID: r.ID, Body: json.RawMessage(r.Body)})
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, coll Collection, id string) (Document, error) {
	if err := checkCollection(coll); err != nil {
		return Document{}, err
	}
	var row documentRow
	err := sqlx.GetContext(ctx, s.q(ctx), &row, `
		SELECT id, body FROM documents
		WHERE collection = $1 AND id = $2
	`, string(coll), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return Document{ID: row.ID, Body: json.RawMessage(row.Body)}, nil
}

func (s *PostgresStore) Put(ctx context.Context, coll Collection, id string, body json.RawMessage) error {
	if err := checkCollection(coll); err != nil {
		return err
	}
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO documents (collection, id, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()
	`, string(coll), id, string(body))
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, coll Collection, id string) error {
	if err := checkCollection(coll); err != nil {
		return err
	}
	res, err := s.q(ctx).ExecContext(ctx, `
		DELETE FROM documents WHERE collection = $1 AND id = $2
	`, string(coll), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Snapshot(ctx context.Context) ([]byte, error) {
	data := make(map[Collection][]Document, len(Collections))
	for _, coll := range Collections {
		docs, err := s.List(ctx, coll)
		if err != nil {
			return nil, err
		}
		data[coll] = docs
	}
	return encodeDocument(data)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// sleepWithBackoff sleeps for an exponentially increasing duration.
func sleepWithBackoff(attempt int, base time.Duration) {
	// Simple exponential backoff: base * 2^(attempt-1), capped to 5s.
	d := base << (attempt - 1)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	time.Sleep(d)
}
