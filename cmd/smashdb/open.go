package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/oresmash/smashdb/internal/config"
	"github.com/oresmash/smashdb/internal/database"
	"github.com/oresmash/smashdb/internal/logging"
)

// env is what every subcommand starts from.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *database.Handler
}

// open loads config and builds the one database handler for this process.
// The caller must call close.
func open(ctx context.Context, configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	db, err := database.New(ctx, cfg.Database, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func (e *env) close() {
	if err := e.db.Disconnect(); err != nil {
		e.logger.Warn("disconnect", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// stringArgs binds CLI arguments positionally as text.
func stringArgs(args []string) database.Binder {
	return func(stmt *database.Statement) error {
		for i, a := range args {
			stmt.SetString(i+1, a)
		}
		return nil
	}
}
