package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver (CGO-free)
)

const (
	// dirPermissions is the mode for a database directory we create.
	dirPermissions = 0o750

	busyTimeoutMillis = 5000
)

// Embedded is the SQLite driver. It holds exactly one connection to the
// database file from construction until Disconnect; every statement runs on
// that connection.
//
// Thread Safety:
//   - Methods may be called concurrently. Statements from different
//     goroutines interleave on the single connection according to SQLite's
//     own rules; callers that need strict ordering coordinate themselves.
type Embedded struct {
	executor
	db   *sqlx.DB
	conn *sqlx.Conn
	path string

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewEmbedded opens the database file at path, creating the file and its
// directory when missing.
func NewEmbedded(ctx context.Context, path string, logger *zap.Logger) (*Embedded, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return nil, newError(KindConfiguration, "new", BackendEmbedded, errors.New("database.SQLite.file is required"))
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, newError(KindConnection, "new", BackendEmbedded, fmt.Errorf("create database directory: %w", err))
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, newError(KindConnection, "new", BackendEmbedded, fmt.Errorf("open sqlite: %w", err))
	}
	// The pool is pinned to the one connection we lease below and never
	// recycled.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	conn, err := db.Connx(ctx)
	if err != nil {
		_ = db.Close()
		return nil, wrap("new", BackendEmbedded, fmt.Errorf("open sqlite: %w", err))
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMillis),
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = conn.Close()
			_ = db.Close()
			return nil, wrap("new", BackendEmbedded, fmt.Errorf("%s: %w", p, err))
		}
	}

	logger.Info("database opened",
		zap.String("backend", BackendEmbedded.String()),
		zap.String("path", path),
	)

	return &Embedded{
		executor: executor{backend: BackendEmbedded, logger: logger},
		db:       db,
		conn:     conn,
		path:     path,
	}, nil
}

// Path returns the database file path.
func (e *Embedded) Path() string { return e.path }

// Connect asserts the connection is open and answers a ping.
func (e *Embedded) Connect(ctx context.Context) error {
	if e.closed.Load() {
		return errClosed("connect", e.backend)
	}
	if err := e.conn.PingContext(ctx); err != nil {
		return newError(KindConnection, "connect", e.backend, err)
	}
	return nil
}

// Disconnect closes the connection and the database file.
func (e *Embedded) Disconnect() error {
	var err error
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		err = errors.Join(e.conn.Close(), e.db.Close())
		e.logger.Info("database closed",
			zap.String("backend", e.backend.String()),
			zap.String("path", e.path),
		)
	})
	if err != nil {
		return newError(KindConnection, "disconnect", e.backend, err)
	}
	return nil
}

func (e *Embedded) IsConnected() bool {
	return !e.closed.Load()
}

func (e *Embedded) Prepared(ctx context.Context, query string, bind Binder) error {
	start := time.Now()
	var err error
	if e.closed.Load() {
		err = errClosed("prepared", e.backend)
	} else {
		err = e.exec(ctx, e.conn, query, bind)
	}
	return e.finishPrepared(query, start, err)
}

func (e *Embedded) Query(ctx context.Context, query string, bind Binder) ([]Row, error) {
	start := time.Now()
	if e.closed.Load() {
		return e.finishQuery(start, nil, errClosed("query", e.backend))
	}
	rows, err := e.query(ctx, e.conn, query, bind)
	return e.finishQuery(start, rows, err)
}

func (e *Embedded) sqlDB() *sql.DB { return e.db.DB }
