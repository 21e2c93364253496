// cmd/server/server.go
package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtsync/internal/api"
	"github.com/codr1/courtsync/internal/api/balance"
	"github.com/codr1/courtsync/internal/api/reservations"
	"github.com/codr1/courtsync/internal/api/syncstatus"
	"github.com/codr1/courtsync/internal/app"
	"github.com/codr1/courtsync/internal/config"
	"github.com/codr1/courtsync/internal/metrics"
)

const healthTimeout = 2 * time.Second

func newServer(cfg *config.Config, a *app.App) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithIdentity,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	// Register routes
	registerRoutes(router, a)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, a *app.App) {
	reservations.InitHandlers(a.Bookings, a.Access, nil)
	balance.InitHandlers(a.Ledger)
	syncstatus.InitHandlers(a.Engine, a.Config.Sync.RunTimeout)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := a.DB.PingContext(ctx); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("Health check failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if a.Registry != nil {
		mux.Handle("GET /metrics", metrics.NewMetricsHandler(a.Registry))
	}

	reservations.Register(mux)
	balance.Register(mux)
	syncstatus.Register(mux)
}
