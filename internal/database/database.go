// Package database is the storage access layer. Callers issue parameterized
// statements through Database without knowing whether a pooled MySQL server
// or a single-file SQLite database is behind it.
//
// Exactly one driver is built per process, by New, from the `database`
// configuration namespace. Each statement leases its own connection handle
// and gives it back on every exit path, so handles are never shared between
// two in-flight statements.
package database

import (
	"context"
	"database/sql"
	"strings"
)

// Backend identifies the active driver.
type Backend int

const (
	BackendUnknown Backend = iota
	// BackendServer is the pooled MySQL driver.
	BackendServer
	// BackendEmbedded is the single-connection SQLite driver.
	BackendEmbedded
)

func (b Backend) String() string {
	switch b {
	case BackendServer:
		return "mysql"
	case BackendEmbedded:
		return "sqlite"
	default:
		return "unknown"
	}
}

// ParseBackend maps a configured `database.type` onto a Backend.
// Matching is case-insensitive.
func ParseBackend(s string) (Backend, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql":
		return BackendServer, true
	case "sqlite":
		return BackendEmbedded, true
	default:
		return BackendUnknown, false
	}
}

// Database is the capability set both drivers implement identically.
type Database interface {
	// Connect asserts the backend is reachable. It never reopens a
	// disconnected backend.
	Connect(ctx context.Context) error

	// Disconnect releases every backend resource. Calling it again is a no-op.
	Disconnect() error

	// IsConnected reports liveness without side effects.
	IsConnected() bool

	// Prepared runs one non-query statement. Constraint violations such as a
	// duplicate unique key are swallowed and reported as success, so callers
	// must not use Prepared to detect duplicates.
	Prepared(ctx context.Context, query string, bind Binder) error

	// Query runs a result-producing statement and returns every row, fully
	// read before the connection handle is released.
	Query(ctx context.Context, query string, bind Binder) ([]Row, error)
}

// sqlSource exposes the pool behind a driver for stats collection.
type sqlSource interface {
	sqlDB() *sql.DB
}
