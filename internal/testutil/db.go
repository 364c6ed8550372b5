package testutil

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/oresmash/smashdb/internal/config"
	"github.com/oresmash/smashdb/internal/database"
)

// NewTestHandler opens an SQLite-backed handler in a fresh data directory.
// The handler is disconnected when the test ends.
func NewTestHandler(t *testing.T) *database.Handler {
	t.Helper()

	cfg := config.DatabaseConfig{
		Type:    "SQLite",
		DataDir: t.TempDir(),
		SQLite:  config.SQLiteConfig{File: "test.db"},
	}
	h, err := database.New(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = h.Disconnect() })
	return h
}
