package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const upsertSnapshot = `
INSERT INTO relay_snapshots (name, body, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`

const selectSnapshot = `SELECT body FROM relay_snapshots WHERE name = $1`

// execer is the subset of *pgxpool.Pool used by SnapshotSink.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SnapshotSink keeps one row per snapshot name in relay_snapshots.
type SnapshotSink struct {
	db    execer
	close func()
}

// NewSnapshotSink wraps an open pool. Closing the sink closes the pool.
func NewSnapshotSink(pool *pgxpool.Pool) *SnapshotSink {
	return &SnapshotSink{db: pool, close: pool.Close}
}

// Put upserts the snapshot body.
func (s *SnapshotSink) Put(ctx context.Context, name string, body []byte) error {
	if _, err := s.db.Exec(ctx, upsertSnapshot, name, string(body)); err != nil {
		return fmt.Errorf("postgres sink: upsert %s: %w", name, err)
	}
	return nil
}

// Get returns the stored snapshot body, or nil if none was written yet.
func (s *SnapshotSink) Get(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRow(ctx, selectSnapshot, name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres sink: read %s: %w", name, err)
	}
	return body, nil
}

// Close releases the pool.
func (s *SnapshotSink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
