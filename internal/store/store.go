// Package store holds persistence for plugin features. Stores talk to the
// database layer only; they never open connections themselves.
package store

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/oresmash/smashdb/internal/database"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// DB is what stores need from the database layer: the common operations plus
// the backend kind, for statements whose syntax differs between MySQL and
// SQLite.
type DB interface {
	database.Database
	IsServerBackend() bool
}

func rowString(r database.Row, col string) (string, error) {
	v, ok := r.Get(col)
	if !ok {
		return "", fmt.Errorf("column %q missing", col)
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(x), nil
	}
}

func rowInt64(r database.Row, col string) (int64, error) {
	v, ok := r.Get(col)
	if !ok {
		return 0, fmt.Errorf("column %q missing", col)
	}
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("column %q: unexpected type %T", col, v)
	}
}
