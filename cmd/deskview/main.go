// Command deskview shows the order desk in a desktop window. Left click
// selects units and destinations; M/H/S/C begin move/hold/support/convoy,
// Esc cancels, P processes the turn and Y copies a party's orders.
package main

import (
	"context"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/orderdesk/internal/app"
	"github.com/freeeve/orderdesk/internal/config"
	"github.com/freeeve/orderdesk/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init(logger.Options{})
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Dev: cfg.Dev})

	desk, err := app.Open(context.Background(), cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Desk startup failed")
	}
	defer desk.Close()

	g, err := newViewer(desk)
	if err != nil {
		log.Fatal().Err(err).Msg("Initial render failed")
	}

	w, h := g.Layout(0, 0)
	ebiten.SetWindowTitle("Order desk")
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil {
		log.Error().Err(err).Msg("Viewer stopped")
	}
}
