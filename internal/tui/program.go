package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Options configure Run.
type Options struct {
	// TrueColor forces 24-bit color for terminals that don't advertise it.
	TrueColor bool
}

// Run shows the game until the player quits or ctx is cancelled.
func Run(ctx context.Context, controller Controller, bridge *Bridge, logger *log.Logger, opts Options) error {
	if opts.TrueColor {
		lipgloss.SetColorProfile(termenv.TrueColor)
	}

	model := NewModel(ctx, controller, bridge, logger)
	defer bridge.Close()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}
