package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/oresmash/smashdb/internal/config"
)

func TestNew_UnsupportedType(t *testing.T) {
	for _, typ := range []string{"", "postgres", "mongo"} {
		_, err := New(context.Background(), config.DatabaseConfig{Type: typ}, nil)
		require.Error(t, err, typ)
		assert.True(t, errors.Is(err, ErrConfiguration), "%q: %v", typ, err)
	}
}

func TestNew_SQLiteCaseInsensitive(t *testing.T) {
	for _, typ := range []string{"SQLite", "sqlite", "SQLITE"} {
		t.Run(typ, func(t *testing.T) {
			cfg := config.DatabaseConfig{
				Type:    typ,
				DataDir: t.TempDir(),
				SQLite:  config.SQLiteConfig{File: "plugin.db"},
			}
			h, err := New(context.Background(), cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			t.Cleanup(func() { _ = h.Disconnect() })

			assert.Equal(t, BackendEmbedded, h.Backend())
			assert.False(t, h.IsServerBackend())
			require.NoError(t, h.Connect(context.Background()))
			assert.True(t, h.IsConnected())
			assert.NotNil(t, h.Collector())

			emb, ok := h.db.(*Embedded)
			require.True(t, ok)
			assert.Equal(t, filepath.Join(cfg.DataDir, "plugin.db"), emb.Path())
		})
	}
}

func TestHandler_Forwards(t *testing.T) {
	s := newTestServer(t, testPool(), nil)
	h := NewHandler(s, BackendServer)
	ctx := context.Background()

	assert.True(t, h.IsServerBackend())
	createUsers(t, h)
	require.NoError(t, h.Prepared(ctx, `INSERT INTO users (name) VALUES (?)`, Args("herobrine")))
	require.NoError(t, h.Prepared(ctx, `INSERT INTO users (name) VALUES (?)`, Args("herobrine")))

	rows, err := h.Query(ctx, `SELECT name FROM users`, NoBind)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, h.Disconnect())
	assert.False(t, h.IsConnected())
	assert.NoError(t, h.Disconnect())
}

func TestParseBackend(t *testing.T) {
	b, ok := ParseBackend(" MySQL ")
	assert.True(t, ok)
	assert.Equal(t, BackendServer, b)
	assert.Equal(t, "mysql", b.String())

	_, ok = ParseBackend("h2")
	assert.False(t, ok)
}
