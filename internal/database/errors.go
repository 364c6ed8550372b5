package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Kind classifies a database failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConnection means the backend is unreachable, closed, or no handle
	// could be acquired in time.
	KindConnection
	// KindStatement covers malformed SQL, type mismatches, bind failures and
	// I/O errors during execution.
	KindStatement
	// KindConstraint is a unique, foreign-key, not-null or check violation.
	KindConstraint
	// KindConfiguration is a bad or missing backend selection.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection failure"
	case KindStatement:
		return "statement failure"
	case KindConstraint:
		return "constraint violation"
	case KindConfiguration:
		return "configuration error"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks against *Error.
var (
	ErrConnection    = errors.New("database: connection failure")
	ErrStatement     = errors.New("database: statement failure")
	ErrConstraint    = errors.New("database: constraint violation")
	ErrConfiguration = errors.New("database: configuration error")
)

// Error is the single application-level error returned by this package.
// Err is the originating driver error.
type Error struct {
	Kind    Kind
	Op      string
	Backend Backend
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("database")
	if e.Backend != BackendUnknown {
		b.WriteString(" (" + e.Backend.String() + ")")
	}
	if e.Op != "" {
		b.WriteString(" " + e.Op)
	}
	b.WriteString(": " + e.Kind.String())
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindConnection:
		return target == ErrConnection
	case KindStatement:
		return target == ErrStatement
	case KindConstraint:
		return target == ErrConstraint
	case KindConfiguration:
		return target == ErrConfiguration
	}
	return false
}

// KindOf returns the kind of err, classifying raw driver errors on the fly.
func KindOf(err error) Kind {
	return Classify(err)
}

// IsKind reports whether err classifies as k.
func IsKind(err error, k Kind) bool {
	return err != nil && Classify(err) == k
}

// MySQL server error numbers that indicate a constraint violation.
var mysqlConstraintErrors = map[uint16]bool{
	1022: true, // ER_DUP_KEY
	1048: true, // ER_BAD_NULL_ERROR
	1062: true, // ER_DUP_ENTRY
	1169: true, // ER_DUP_UNIQUE
	1216: true, // ER_NO_REFERENCED_ROW
	1217: true, // ER_ROW_IS_REFERENCED
	1451: true, // ER_ROW_IS_REFERENCED_2
	1452: true, // ER_NO_REFERENCED_ROW_2
	1557: true, // ER_FOREIGN_DUPLICATE_KEY_OLD_UNUSED
	1586: true, // ER_DUP_ENTRY_WITH_KEY_NAME
	1761: true, // ER_FOREIGN_DUPLICATE_KEY_WITH_CHILD_INFO
	1762: true, // ER_FOREIGN_DUPLICATE_KEY_WITHOUT_CHILD_INFO
	3819: true, // ER_CHECK_CONSTRAINT_VIOLATED
}

// MySQL errors that mean the server could not be reached or refused us.
var mysqlConnectionErrors = map[uint16]bool{
	1040: true, // ER_CON_COUNT_ERROR
	1045: true, // ER_ACCESS_DENIED_ERROR
	1049: true, // ER_BAD_DB_ERROR
	1053: true, // ER_SERVER_SHUTDOWN
	1152: true, // ER_ABORTING_CONNECTION
	2002: true, // CR_CONNECTION_ERROR
	2003: true, // CR_CONN_HOST_ERROR
	2006: true, // CR_SERVER_GONE_ERROR
	2013: true, // CR_SERVER_LOST
}

// Classify maps a low-level failure onto a Kind. Errors already wrapped in
// *Error keep their kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.Kind
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch {
		case mysqlConstraintErrors[myErr.Number]:
			return KindConstraint
		case mysqlConnectionErrors[myErr.Number]:
			return KindConnection
		default:
			return KindStatement
		}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return KindConstraint
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB:
			return KindConnection
		default:
			return KindStatement
		}
	}

	if errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, context.DeadlineExceeded) {
		return KindConnection
	}

	// Wrapped or proxied drivers lose their typed errors; fall back to the
	// messages the two backends produce.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "connection refused"):
		return KindConnection
	case strings.Contains(msg, "unique constraint"), // SQLite
		strings.Contains(msg, "duplicate entry"), // MySQL
		strings.Contains(msg, "foreign key constraint"):
		return KindConstraint
	}
	return KindStatement
}

// wrap turns err into an *Error for op, keeping the kind of errors that are
// already wrapped.
func wrap(op string, b Backend, err error) error {
	if err == nil {
		return nil
	}
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return err
	}
	return &Error{Kind: Classify(err), Op: op, Backend: b, Err: err}
}

func newError(kind Kind, op string, b Backend, err error) *Error {
	return &Error{Kind: kind, Op: op, Backend: b, Err: err}
}

func errClosed(op string, b Backend) *Error {
	return newError(KindConnection, op, b, fmt.Errorf("%s backend is disconnected", b))
}
