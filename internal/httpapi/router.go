// Package httpapi serves the operational endpoints: health, metrics, and a
// read-only leaderboard.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/oresmash/smashdb/internal/database"
	"github.com/oresmash/smashdb/internal/store"
)

const (
	defaultTopLimit = 10
	maxTopLimit     = 100
)

// Health is the part of the database handler the health check needs.
type Health interface {
	IsConnected() bool
	Backend() database.Backend
}

// Leaderboard lists the top players.
type Leaderboard interface {
	Top(ctx context.Context, limit int) ([]*store.Player, error)
}

// Deps holds all dependencies required to build the router.
type Deps struct {
	DB       Health
	Players  Leaderboard
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewRouter assembles the chi router.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/healthz", healthz(deps.DB))
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	if deps.Players != nil {
		r.Get("/players/top", topPlayers(deps.Players, deps.Logger))
	}
	return r
}

type healthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

func healthz(db Health) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Backend: db.Backend().String()}
		status := http.StatusOK
		if !db.IsConnected() {
			resp.Status = "disconnected"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

type playerResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Smashes int64  `json:"smashes"`
}

func topPlayers(players Leaderboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultTopLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > maxTopLimit {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 100"})
				return
			}
			limit = n
		}

		top, err := players.Top(r.Context(), limit)
		if err != nil {
			logger.Error("list top players", zap.Error(err))
			status := http.StatusInternalServerError
			if database.IsKind(err, database.KindConnection) {
				status = http.StatusServiceUnavailable
			}
			writeJSON(w, status, map[string]string{"error": "database unavailable"})
			return
		}

		resp := make([]playerResponse, 0, len(top))
		for _, p := range top {
			resp = append(resp, playerResponse{ID: p.ID.String(), Name: p.Name, Smashes: p.Smashes})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
