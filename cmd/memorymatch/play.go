package main

import (
	"fmt"
	"os"

	"github.com/lox/memorymatch/cmd/memorymatch/shared"
	"github.com/lox/memorymatch/internal/randutil"
	"github.com/lox/memorymatch/internal/tui"
)

// PlayCmd runs the game in the terminal.
type PlayCmd struct {
	TrueColor bool   `help:"Force 24-bit color"`
	LogFile   string `help:"Log file (overrides ui.log_file)"`
}

func (c *PlayCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if c.LogFile != "" {
		cfg.UI.LogFile = c.LogFile
	}

	// The terminal belongs to the TUI, so logs go to a file.
	logFile, err := os.OpenFile(cfg.UI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	logger, err := g.logger(logFile, cfg.UI.LogLevel)
	if err != nil {
		return err
	}
	logger.Info("Starting terminal game", "version", version, "storage", cfg.Storage.Backend)

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	bridge := tui.NewBridge()
	controller := a.newController(bridge, randutil.New(g.seed(logger)))
	defer controller.Close()

	ctx := shared.SetupSignalHandler(logger)
	return tui.Run(ctx, controller, bridge, logger, tui.Options{
		TrueColor: c.TrueColor || cfg.UI.TrueColor,
	})
}
