package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/orderdesk/internal/app"
	"github.com/freeeve/orderdesk/internal/config"
	"github.com/freeeve/orderdesk/internal/handler"
	"github.com/freeeve/orderdesk/internal/logger"
	"github.com/freeeve/orderdesk/internal/middleware"
	"github.com/freeeve/orderdesk/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init(logger.Options{})
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Dev: cfg.Dev})
	log.Info().
		Str("adjudicator", cfg.AdjudicatorPath).
		Str("journal", cfg.Journal).
		Str("interaction", cfg.InteractionMode).
		Msg("Config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "orderdesk", cfg.OTelEndpoint, cfg.TracingEnabled())
	if err != nil {
		log.Warn().Err(err).Msg("Tracing setup failed, continuing without tracing")
	}

	// WebSocket hub receives every desk update
	wsHub := handler.NewHub()

	desk, err := app.Open(ctx, cfg, wsHub)
	if err != nil {
		log.Fatal().Err(err).Msg("Desk startup failed")
	}
	defer desk.Close()

	// Handlers
	deskHandler := handler.NewDeskHandler(desk.Service)
	wsHandler := handler.NewWSHandler(wsHub, desk.Service)

	// Router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := desk.Ready(ctx); err != nil {
			log.Warn().Err(err).Msg("Adjudicator not ready")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"adjudicator unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	deskHandler.Register(mux)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Trace, middleware.Logger, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Tracing shutdown error")
	}
	log.Info().Msg("Server stopped")
}
