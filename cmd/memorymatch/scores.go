package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lox/memorymatch/internal/prompt"
)

// ScoresCmd manages the high-score table from the shell.
type ScoresCmd struct {
	Show  ScoresShowCmd  `cmd:"" default:"1" help:"Print the high-score table"`
	Clear ScoresClearCmd `cmd:"" help:"Erase the high-score table"`
}

type ScoresShowCmd struct{}

func (c *ScoresShowCmd) Run(g *Globals) error {
	a, err := openScores(g)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.ledger.Display(context.Background(), prompt.NewConsole(os.Stdin, os.Stdout))
}

type ScoresClearCmd struct {
	Yes bool `short:"y" help:"Don't ask for confirmation"`
}

func (c *ScoresClearCmd) Run(g *Globals) error {
	a, err := openScores(g)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	console := prompt.NewConsole(os.Stdin, os.Stdout)

	if !c.Yes {
		answer, ok, err := console.Prompt(ctx, "Clear all high scores? (y/N)")
		if err != nil {
			return err
		}
		if !ok || !strings.EqualFold(strings.TrimSpace(answer), "y") {
			return console.Announce(ctx, "Cancelled.")
		}
	}

	if err := a.ledger.Clear(ctx); err != nil {
		return fmt.Errorf("clearing scores: %w", err)
	}
	return console.Announce(ctx, "High scores cleared.")
}

func openScores(g *Globals) (*app, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := g.logger(os.Stderr, cfg.Server.LogLevel)
	if err != nil {
		return nil, err
	}
	return openApp(cfg, logger)
}
