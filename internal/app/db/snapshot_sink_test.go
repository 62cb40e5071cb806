package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// These tests need a reachable PostgreSQL; they are skipped when RELAY_TEST_DATABASE_URL is unset.
func newTestSink(t *testing.T) *SnapshotSink {
	t.Helper()

	dsn := os.Getenv("RELAY_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("RELAY_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Skipf("database unavailable: %v", err)
	}

	_, err = pool.Exec(ctx, "DELETE FROM relay_snapshots")
	require.NoError(t, err)

	sink := NewSnapshotSink(pool)
	t.Cleanup(func() { _ = sink.Close() })

	return sink
}

func TestSnapshotSink_PutOverwrites(t *testing.T) {
	req := require.New(t)
	sink := newTestSink(t)
	ctx := context.Background()

	req.NoError(sink.Put(ctx, "rooms", []byte(`[]`)))
	req.NoError(sink.Put(ctx, "rooms", []byte(`[{"name":"r1","messages":[],"members":["a"]}]`)))

	body, err := sink.Get(ctx, "rooms")
	req.NoError(err)
	req.JSONEq(`[{"name":"r1","messages":[],"members":["a"]}]`, string(body))
}

func TestSnapshotSink_GetMissing(t *testing.T) {
	sink := newTestSink(t)

	body, err := sink.Get(context.Background(), "users")

	require.NoError(t, err)
	require.Nil(t, body)
}
