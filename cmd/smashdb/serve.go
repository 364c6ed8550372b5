package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oresmash/smashdb/internal/httpapi"
	"github.com/oresmash/smashdb/internal/store"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics and the leaderboard over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := open(ctx, *configPath)
			if err != nil {
				return err
			}
			defer e.close()

			players := store.NewPlayerStore(e.db)
			if err := players.EnsureSchema(ctx); err != nil {
				return err
			}

			if c := e.db.Collector(); c != nil {
				prometheus.MustRegister(c)
			}

			srv := &http.Server{
				Addr: e.cfg.HTTP.Addr,
				Handler: httpapi.NewRouter(httpapi.Deps{
					DB:      e.db,
					Players: players,
					Logger:  e.logger,
				}),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				e.logger.Info("listening", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			e.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
