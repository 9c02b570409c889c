// Package session drives one player's use of the game: the menu, starting
// standard and random boards, the end-of-game flow and the high-score
// table.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/memorymatch/internal/board"
	"github.com/lox/memorymatch/internal/game"
	"github.com/lox/memorymatch/internal/ledger"
	"github.com/lox/memorymatch/internal/palette"
	"github.com/lox/memorymatch/internal/prompt"
	"github.com/lox/memorymatch/internal/randutil"
)

// View is which surface is showing.
type View int

const (
	ViewMenu View = iota
	ViewBoard
)

func (v View) String() string {
	if v == ViewBoard {
		return "board"
	}
	return "menu"
}

// EventTypeViewChanged is published when the menu/board toggle flips.
const EventTypeViewChanged game.EventType = "view_changed"

// ViewChangedEvent reports the newly visible surface.
type ViewChangedEvent struct {
	View      View
	timestamp time.Time
}

func (e ViewChangedEvent) EventType() game.EventType { return EventTypeViewChanged }
func (e ViewChangedEvent) Timestamp() time.Time      { return e.timestamp }

// ErrBusy is returned when a new board is requested while the end-of-game
// flow is still waiting on the player.
var ErrBusy = errors.New("session: end-of-game flow in progress")

// Snapshot is the controller's state for renderers.
type Snapshot struct {
	View View
	game.Snapshot
}

// Controller owns the menu/board toggle and the single active session.
type Controller struct {
	machine *game.Machine
	ledger  *ledger.Ledger
	ui      prompt.UI
	colors  *palette.Generator
	rng     *rand.Rand
	logger  *log.Logger

	minColors int
	maxColors int

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	view    View
	winning atomic.Bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithRand sets the source used to shuffle boards.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) { c.rng = rng }
}

// WithPalette sets the generator for random boards.
func WithPalette(g *palette.Generator) Option {
	return func(c *Controller) { c.colors = g }
}

// WithColorRange sets the accepted color counts for random boards.
func WithColorRange(min, max int) Option {
	return func(c *Controller) { c.minColors, c.maxColors = min, max }
}

// New creates a controller showing the menu. It installs itself as the
// machine's win handler.
func New(machine *game.Machine, lg *ledger.Ledger, ui prompt.UI, logger *log.Logger, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		machine:   machine,
		ledger:    lg,
		ui:        ui,
		logger:    logger.WithPrefix("session"),
		minColors: 2,
		maxColors: 32,
		ctx:       ctx,
		cancel:    cancel,
		view:      ViewMenu,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = randutil.New(time.Now().UnixNano())
	}
	if c.colors == nil {
		c.colors = palette.NewGenerator(c.rng, 20, 10000)
	}
	machine.SetWinHandler(c.handleWin)
	return c
}

// EventBus is the bus carrying both game and view events.
func (c *Controller) EventBus() game.EventBus {
	return c.machine.EventBus()
}

// View returns the visible surface.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Snapshot returns the view plus the machine state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{View: c.View(), Snapshot: c.machine.Snapshot()}
}

// Select forwards a tile click to the machine.
func (c *Controller) Select(id board.TileID) error {
	return c.machine.Handle(game.TileSelected{ID: id})
}

// StartStandard deals the five standard colors.
func (c *Controller) StartStandard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.winning.Load() {
		return ErrBusy
	}
	c.prepare()
	if err := c.deal(palette.StandardTokens()); err != nil {
		c.ResetToMenu()
		return err
	}
	return nil
}

// CountPrompt is the question asked before a random board.
func (c *Controller) CountPrompt() string {
	return fmt.Sprintf("Choose a number between %d and %d:", c.minColors, c.maxColors)
}

// StartRandom asks for a color count and deals that many random,
// perceptually distinct colors. Cancelling the question returns to the
// menu.
func (c *Controller) StartRandom(ctx context.Context) error {
	if c.winning.Load() {
		return ErrBusy
	}
	c.prepare()

	n, ok, err := c.askCount(ctx)
	if err != nil {
		c.ResetToMenu()
		return err
	}
	if !ok {
		c.logger.Debug("Color count prompt cancelled")
		c.ResetToMenu()
		return nil
	}

	colors, err := c.colors.Generate(n)
	if errors.Is(err, palette.ErrExhausted) {
		c.logger.Warn("Palette exhausted", "colors", n, "error", err)
		c.ResetToMenu()
		return c.ui.Announce(ctx, fmt.Sprintf("Could not find %d distinct colors. Try a smaller number.", n))
	}
	if err != nil {
		c.ResetToMenu()
		return err
	}

	if err := c.deal(colors); err != nil {
		c.ResetToMenu()
		return err
	}
	return nil
}

func (c *Controller) askCount(ctx context.Context) (int, bool, error) {
	for {
		answer, ok, err := c.ui.Prompt(ctx, c.CountPrompt())
		if err != nil || !ok {
			return 0, false, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(answer))
		if err == nil && n >= c.minColors && n <= c.maxColors {
			return n, true, nil
		}
		c.logger.Debug("Rejected color count", "answer", answer)
	}
}

// prepare hides the menu and drops any running session.
func (c *Controller) prepare() {
	c.machine.Invalidate()
	c.setView(ViewBoard)
}

func (c *Controller) deal(distinct []board.Token) error {
	tokens := board.Duplicate(distinct)
	if err := board.Validate(tokens); err != nil {
		return fmt.Errorf("dealing board: %w", err)
	}
	randutil.Shuffle(c.rng, tokens)
	c.machine.Begin(board.Build(tokens))
	c.logger.Info("Board dealt", "pairs", len(distinct))
	return nil
}

// ResetToMenu clears the board and shows the menu.
func (c *Controller) ResetToMenu() {
	c.machine.Invalidate()
	c.setView(ViewMenu)
}

// ShowLedger announces the high-score table.
func (c *Controller) ShowLedger(ctx context.Context) error {
	return c.ledger.Display(ctx, c.ui)
}

// ClearLedger erases the high-score table without confirmation.
func (c *Controller) ClearLedger(ctx context.Context) error {
	return c.ledger.Clear(ctx)
}

// Close ends the session and aborts any end-of-game flow in progress.
func (c *Controller) Close() {
	c.cancel()
	c.machine.Invalidate()
}

func (c *Controller) setView(v View) {
	c.mu.Lock()
	changed := c.view != v
	c.view = v
	c.mu.Unlock()

	if changed {
		c.logger.Debug("View changed", "view", v)
		c.machine.EventBus().Publish(ViewChangedEvent{View: v, timestamp: time.Now()})
	}
}

// handleWin runs once the win delay has elapsed for session gen. It only
// returns to the menu if that session is still the current one.
func (c *Controller) handleWin(score int, gen uint64) {
	ctx := c.ctx
	if ctx.Err() != nil {
		return
	}
	c.winning.Store(true)
	defer c.winning.Store(false)

	if err := c.ui.Announce(ctx, fmt.Sprintf("Game Complete! Your score is: %d", score)); err != nil {
		c.logger.Warn("Win announcement failed", "error", err)
	}
	if _, err := c.ledger.Record(ctx, score, c.ui); err != nil {
		c.logger.Error("Failed to record score", "score", score, "error", err)
	}
	if c.machine.InvalidateIf(gen) {
		c.setView(ViewMenu)
	}
}
