package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedded_ConnectThenIsConnected(t *testing.T) {
	e := newTestEmbedded(t)

	require.NoError(t, e.Connect(context.Background()))
	assert.True(t, e.IsConnected())
}

func TestEmbedded_CreatesFileAndDirectory(t *testing.T) {
	e := newTestEmbedded(t)

	_, err := os.Stat(e.Path())
	require.NoError(t, err)
	assert.Equal(t, "smash.db", filepath.Base(e.Path()))
}

func TestEmbedded_DisconnectStopsOperations(t *testing.T) {
	e := newTestEmbedded(t)
	ctx := context.Background()
	createUsers(t, e)

	require.NoError(t, e.Disconnect())
	assert.False(t, e.IsConnected())

	err := e.Prepared(ctx, `INSERT INTO users (name) VALUES (?)`, Args("steve"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection), "got %v", err)

	_, err = e.Query(ctx, `SELECT * FROM users`, NoBind)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection), "got %v", err)

	err = e.Connect(ctx)
	assert.True(t, errors.Is(err, ErrConnection), "connect must not reopen: %v", err)
}

func TestEmbedded_DisconnectTwice(t *testing.T) {
	e := newTestEmbedded(t)

	assert.NoError(t, e.Disconnect())
	assert.NoError(t, e.Disconnect())
}

func TestEmbedded_DuplicateInsertSwallowed(t *testing.T) {
	e := newTestEmbedded(t)
	ctx := context.Background()
	createUsers(t, e)

	insert := `INSERT INTO users (name) VALUES (?)`
	require.NoError(t, e.Prepared(ctx, insert, Args("alex")))
	require.NoError(t, e.Prepared(ctx, insert, Args("alex")), "constraint violation must not surface")

	assert.Equal(t, int64(1), countRows(t, e, "users"))
}

func TestEmbedded_ForeignKeyViolationSwallowed(t *testing.T) {
	e := newTestEmbedded(t)
	ctx := context.Background()
	require.NoError(t, e.Prepared(ctx, `CREATE TABLE parent (id INTEGER PRIMARY KEY)`, NoBind))
	require.NoError(t, e.Prepared(ctx,
		`CREATE TABLE child (id INTEGER PRIMARY KEY, parent_id INTEGER NOT NULL REFERENCES parent(id))`, NoBind))

	require.NoError(t, e.Prepared(ctx, `INSERT INTO child (parent_id) VALUES (?)`, Args(42)))
	assert.Equal(t, int64(0), countRows(t, e, "child"))
}

func TestEmbedded_QueryReturnsRowsInOrder(t *testing.T) {
	e := newTestEmbedded(t)
	ctx := context.Background()
	require.NoError(t, e.Prepared(ctx, `CREATE TABLE t (a INTEGER, b TEXT)`, NoBind))

	const n = 25
	for i := 0; i < n; i++ {
		i := i
		err := e.Prepared(ctx, `INSERT INTO t (a, b) VALUES (?, ?)`, func(stmt *Statement) error {
			stmt.SetInt(1, i)
			stmt.SetString(2, fmt.Sprintf("row-%d", i))
			return nil
		})
		require.NoError(t, err)
	}

	rows, err := e.Query(ctx, `SELECT a, b FROM t`, NoBind)
	require.NoError(t, err)
	require.Len(t, rows, n)
	for i, r := range rows {
		assert.Equal(t, []string{"a", "b"}, r.Columns())
		a, _ := r.Get("a")
		b, _ := r.Get("b")
		assert.Equal(t, int64(i), a)
		assert.Equal(t, fmt.Sprintf("row-%d", i), b)
	}
}

func TestEmbedded_QueryEmptyResult(t *testing.T) {
	e := newTestEmbedded(t)
	createUsers(t, e)

	rows, err := e.Query(context.Background(), `SELECT * FROM users`, NoBind)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Len(t, rows, 0)
}

func TestEmbedded_NativeTypes(t *testing.T) {
	e := newTestEmbedded(t)
	ctx := context.Background()
	require.NoError(t, e.Prepared(ctx,
		`CREATE TABLE v (i INTEGER, r REAL, s TEXT, b BLOB, n TEXT)`, NoBind))
	require.NoError(t, e.Prepared(ctx, `INSERT INTO v VALUES (?, ?, ?, ?, ?)`, func(stmt *Statement) error {
		stmt.SetInt64(1, 7)
		stmt.SetFloat64(2, 2.5)
		stmt.SetString(3, "diamond")
		stmt.SetBytes(4, []byte{0x01, 0x02})
		stmt.SetNull(5)
		return nil
	}))

	rows, err := e.Query(ctx, `SELECT i, r, s, b, n FROM v`, NoBind)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []any{int64(7), 2.5, "diamond", []byte{0x01, 0x02}, nil}, rows[0].Values())
}

func TestEmbedded_QueryWithParameters(t *testing.T) {
	e := newTestEmbedded(t)
	ctx := context.Background()
	createUsers(t, e)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, e.Prepared(ctx, `INSERT INTO users (name, score) VALUES (?, ?)`, Args(name, 1.5)))
	}

	rows, err := e.Query(ctx, `SELECT name FROM users WHERE name <> ? ORDER BY name`, Args("b"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	first, _ := rows[0].Get("name")
	second, _ := rows[1].Get("name")
	assert.Equal(t, "a", first)
	assert.Equal(t, "c", second)
}

func TestEmbedded_StatementFailures(t *testing.T) {
	e := newTestEmbedded(t)
	ctx := context.Background()
	createUsers(t, e)

	err := e.Prepared(ctx, `INSERT INTO nowhere VALUES (1)`, NoBind)
	assert.True(t, errors.Is(err, ErrStatement), "got %v", err)

	_, err = e.Query(ctx, `SELEC name FROM users`, NoBind)
	assert.True(t, errors.Is(err, ErrStatement), "got %v", err)

	// A binder error is a statement failure even when its text looks like a
	// constraint violation, so it is never swallowed.
	err = e.Prepared(ctx, `INSERT INTO users (name) VALUES (?)`, func(*Statement) error {
		return errors.New("UNIQUE constraint failed: fake")
	})
	assert.True(t, errors.Is(err, ErrStatement), "got %v", err)

	err = e.Prepared(ctx, `INSERT INTO users (name, score) VALUES (?, ?)`, func(stmt *Statement) error {
		stmt.SetFloat64(2, 1)
		return nil
	})
	assert.True(t, errors.Is(err, ErrStatement), "unbound parameter: got %v", err)
}

func TestEmbedded_ConcurrentCallers(t *testing.T) {
	e := newTestEmbedded(t)
	ctx := context.Background()
	createUsers(t, e)

	const k = 16
	var wg sync.WaitGroup
	errs := make(chan error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- e.Prepared(ctx, `INSERT INTO users (name) VALUES (?)`, Args(fmt.Sprintf("user-%d", i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(k), countRows(t, e, "users"))
}

func TestNewEmbedded_EmptyPath(t *testing.T) {
	_, err := NewEmbedded(context.Background(), "", nil)
	assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
}
