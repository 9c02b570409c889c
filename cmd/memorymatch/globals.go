package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/memorymatch/cmd/memorymatch/shared"
	"github.com/lox/memorymatch/internal/config"
	"github.com/lox/memorymatch/internal/game"
	"github.com/lox/memorymatch/internal/ledger"
	"github.com/lox/memorymatch/internal/palette"
	"github.com/lox/memorymatch/internal/prompt"
	"github.com/lox/memorymatch/internal/session"
	"github.com/lox/memorymatch/internal/store"
)

// Globals are flags shared by every command.
type Globals struct {
	Config   string `short:"c" default:"${default_config}" type:"path" help:"HCL config file"`
	LogLevel string `help:"Override the configured log level (debug, info, warn, error)"`
	Seed     *int64 `help:"Deterministic RNG seed (optional)"`
}

func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", g.Config, err)
	}
	return cfg, nil
}

// logger builds a logger at the flag's level, falling back to configured.
func (g *Globals) logger(w io.Writer, configured string) (*log.Logger, error) {
	level := configured
	if g.LogLevel != "" {
		level = g.LogLevel
	}
	return shared.SetupLogger(w, level)
}

func (g *Globals) seed(logger *log.Logger) int64 {
	if g.Seed != nil {
		logger.Info("Using deterministic seed", "seed", *g.Seed)
		return *g.Seed
	}
	seed := time.Now().UnixNano()
	logger.Debug("Using random seed", "seed", seed)
	return seed
}

// app holds what every game front end needs.
type app struct {
	cfg    *config.Config
	store  store.Store
	ledger *ledger.Ledger
	logger *log.Logger
}

func openApp(cfg *config.Config, logger *log.Logger) (*app, error) {
	st, err := store.Open(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return &app{
		cfg:    cfg,
		store:  st,
		ledger: ledger.New(st, cfg.Storage.Key, logger),
		logger: logger,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// newController wires a machine and controller to ui using the configured
// timings and palette.
func (a *app) newController(ui prompt.UI, rng *rand.Rand) *session.Controller {
	g := a.cfg.Game
	machine := game.NewMachine(a.logger, game.WithTimings(g.Timings()))
	return session.New(machine, a.ledger, ui, a.logger,
		session.WithRand(rng),
		session.WithPalette(palette.NewGenerator(rng, g.MinColorDistance, g.MaxColorAttempts)),
		session.WithColorRange(g.MinColors, g.MaxColors),
	)
}
