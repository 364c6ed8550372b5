package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/oresmash/smashdb/internal/metrics"
)

// executor runs one statement on a handle the driver has already acquired.
// Releasing the handle stays with the driver.
type executor struct {
	backend Backend
	logger  *zap.Logger
}

// q rebinds ? placeholders to the driver's native format.
func (e executor) q(conn *sqlx.Conn, query string) string {
	return conn.Rebind(query)
}

func (e executor) exec(ctx context.Context, conn *sqlx.Conn, query string, bind Binder) error {
	stmt, err := conn.PreparexContext(ctx, e.q(conn, query))
	if err != nil {
		return wrap("prepare", e.backend, err)
	}
	defer func() { _ = stmt.Close() }()

	args, err := bindArgs(query, bind)
	if err != nil {
		return newError(KindStatement, "bind", e.backend, err)
	}

	if _, err := stmt.ExecContext(ctx, args...); err != nil {
		return wrap("prepared", e.backend, err)
	}
	return nil
}

func (e executor) query(ctx context.Context, conn *sqlx.Conn, query string, bind Binder) ([]Row, error) {
	stmt, err := conn.PreparexContext(ctx, e.q(conn, query))
	if err != nil {
		return nil, wrap("prepare", e.backend, err)
	}
	defer func() { _ = stmt.Close() }()

	args, err := bindArgs(query, bind)
	if err != nil {
		return nil, newError(KindStatement, "bind", e.backend, err)
	}

	rows, err := stmt.QueryxContext(ctx, args...)
	if err != nil {
		return nil, wrap("query", e.backend, err)
	}
	defer func() { _ = rows.Close() }()

	result, err := mapRows(rows)
	if err != nil {
		return nil, wrap("query", e.backend, err)
	}
	return result, nil
}

// finishPrepared records the outcome of a Prepared call and applies the
// swallow rule: a constraint violation is reported to the caller as success.
func (e executor) finishPrepared(query string, start time.Time, err error) error {
	backend := e.backend.String()
	metrics.StatementDuration.WithLabelValues(backend, "prepared").Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.StatementsTotal.WithLabelValues(backend, "prepared", metrics.ResultOK).Inc()
		return nil
	case Classify(err) == KindConstraint:
		metrics.StatementsTotal.WithLabelValues(backend, "prepared", metrics.ResultConstraintSwallowed).Inc()
		e.logger.Debug("constraint violation ignored",
			zap.String("backend", backend),
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	default:
		metrics.StatementsTotal.WithLabelValues(backend, "prepared", metrics.ResultError).Inc()
		return err
	}
}

func (e executor) finishQuery(start time.Time, rows []Row, err error) ([]Row, error) {
	backend := e.backend.String()
	metrics.StatementDuration.WithLabelValues(backend, "query").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StatementsTotal.WithLabelValues(backend, "query", metrics.ResultError).Inc()
		return nil, err
	}
	metrics.StatementsTotal.WithLabelValues(backend, "query", metrics.ResultOK).Inc()
	return rows, nil
}
