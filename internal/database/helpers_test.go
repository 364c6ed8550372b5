package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/oresmash/smashdb/internal/config"
)

// newTestEmbedded opens an Embedded driver on a fresh file in t's temp dir.
func newTestEmbedded(t *testing.T) *Embedded {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "smash.db")
	e, err := NewEmbedded(context.Background(), path, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Disconnect() })
	return e
}

// newTestServer runs the Server pool over a SQLite file so pool behaviour
// can be exercised without a MySQL server.
func newTestServer(t *testing.T, pool config.PoolConfig, logger *zap.Logger) *Server {
	t.Helper()
	if logger == nil {
		logger = zaptest.NewLogger(t)
	}
	path := filepath.Join(t.TempDir(), "pool.db")
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open("sqlite", dsn)
	require.NoError(t, err)

	s, err := newServer(context.Background(), db, pool, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Disconnect() })
	return s
}

func testPool() config.PoolConfig {
	p := config.DefaultPool()
	p.MinIdle = 0
	p.AcquireTimeout = 2 * time.Second
	return p
}

func createUsers(t *testing.T, db Database) {
	t.Helper()
	err := db.Prepared(context.Background(),
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE, score REAL)`, NoBind)
	require.NoError(t, err)
}

func countRows(t *testing.T, db Database, table string) int64 {
	t.Helper()
	rows, err := db.Query(context.Background(), "SELECT COUNT(*) AS n FROM "+table, NoBind)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	n, ok := rows[0].Get("n")
	require.True(t, ok)
	return n.(int64)
}
