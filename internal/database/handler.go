package database

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/oresmash/smashdb/internal/config"
)

// Handler selects the driver from configuration once and forwards every
// operation to it. The only thing it adds is the backend-kind query, so
// callers can branch on SQL dialect differences.
type Handler struct {
	db      Database
	backend Backend
}

var _ Database = (*Handler)(nil)

// New builds the driver named by cfg.Type. Anything other than MySQL or
// SQLite fails with a configuration error.
func New(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Handler, error) {
	backend, ok := ParseBackend(cfg.Type)
	if !ok {
		return nil, newError(KindConfiguration, "new", BackendUnknown,
			fmt.Errorf("unsupported database type %q: must be MySQL or SQLite", cfg.Type))
	}

	var (
		db  Database
		err error
	)
	switch backend {
	case BackendServer:
		db, err = NewServer(ctx, cfg.MySQL, logger)
	case BackendEmbedded:
		db, err = NewEmbedded(ctx, cfg.SQLitePath(), logger)
	}
	if err != nil {
		return nil, err
	}
	return &Handler{db: db, backend: backend}, nil
}

// NewHandler wraps an already constructed driver.
func NewHandler(db Database, backend Backend) *Handler {
	return &Handler{db: db, backend: backend}
}

func (h *Handler) Connect(ctx context.Context) error { return h.db.Connect(ctx) }

func (h *Handler) Disconnect() error { return h.db.Disconnect() }

func (h *Handler) IsConnected() bool { return h.db.IsConnected() }

func (h *Handler) Prepared(ctx context.Context, query string, bind Binder) error {
	return h.db.Prepared(ctx, query, bind)
}

func (h *Handler) Query(ctx context.Context, query string, bind Binder) ([]Row, error) {
	return h.db.Query(ctx, query, bind)
}

// Backend returns the active backend.
func (h *Handler) Backend() Backend { return h.backend }

// IsServerBackend reports whether the MySQL driver is active.
func (h *Handler) IsServerBackend() bool { return h.backend == BackendServer }

// Collector returns a prometheus collector for the driver's pool stats, or
// nil when the driver does not expose a pool.
func (h *Handler) Collector() prometheus.Collector {
	src, ok := h.db.(sqlSource)
	if !ok {
		return nil
	}
	return collectors.NewDBStatsCollector(src.sqlDB(), h.backend.String())
}
