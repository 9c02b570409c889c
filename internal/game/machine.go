package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/memorymatch/internal/board"
)

// State is the turn's position in the select/compare/resolve cycle.
type State int

const (
	// StateIdle means no tile is selected.
	StateIdle State = iota
	// StateOneSelected means the first tile of a turn is face-up.
	StateOneSelected
	// StateLocked means two tiles are face-up and the turn is resolving.
	StateLocked
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOneSelected:
		return "one_selected"
	case StateLocked:
		return "locked"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Timings are the fixed delays of a turn.
type Timings struct {
	Unlock   time.Duration // after the first tile is revealed
	Mismatch time.Duration // how long a mismatched pair stays visible
	Win      time.Duration // before the completion announcement
}

// DefaultTimings returns the standard 300ms/1000ms/500ms delays.
func DefaultTimings() Timings {
	return Timings{
		Unlock:   300 * time.Millisecond,
		Mismatch: 1000 * time.Millisecond,
		Win:      500 * time.Millisecond,
	}
}

// Session is the running tally for one dealt board.
type Session struct {
	Score        int `json:"score"`
	MatchedPairs int `json:"matchedPairs"`
	TotalPairs   int `json:"totalPairs"`
}

// Won reports whether every pair on a non-empty board has been matched.
func (s Session) Won() bool {
	return s.TotalPairs > 0 && s.MatchedPairs == s.TotalPairs
}

// Event is an input delivered to the machine.
type Event interface {
	isEvent()
}

// TileSelected is a click on a tile.
type TileSelected struct {
	ID board.TileID
}

func (TileSelected) isEvent() {}

// WinFunc is called once the win delay has elapsed, outside the machine's
// lock. generation identifies the won session; see InvalidateIf.
type WinFunc func(score int, generation uint64)

// Snapshot is a point-in-time copy of the machine for renderers.
type Snapshot struct {
	Active     bool
	Session    Session
	State      State
	Clickable  bool
	Generation uint64
	Tiles      []board.Tile
}

// Machine is the turn state machine. All transitions happen on Handle or
// on expiry of a deferred callback; the clickable flag gates input and
// clicks arriving while it is false are dropped.
type Machine struct {
	mu      sync.Mutex
	clock   quartz.Clock
	timings Timings
	bus     EventBus
	logger  *log.Logger
	onWin   WinFunc

	board      *board.Board
	session    Session
	first      *board.TileID
	second     *board.TileID
	clickable  bool
	generation uint64
	timers     []*quartz.Timer
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock sets the clock used for deferred callbacks.
func WithClock(clock quartz.Clock) Option {
	return func(m *Machine) { m.clock = clock }
}

// WithTimings overrides the default delays.
func WithTimings(t Timings) Option {
	return func(m *Machine) { m.timings = t }
}

// WithEventBus sets the bus events are published on.
func WithEventBus(bus EventBus) Option {
	return func(m *Machine) { m.bus = bus }
}

// WithWinHandler sets the function invoked after the win delay.
func WithWinHandler(fn WinFunc) Option {
	return func(m *Machine) { m.onWin = fn }
}

// NewMachine creates an idle machine with no board.
func NewMachine(logger *log.Logger, opts ...Option) *Machine {
	m := &Machine{
		clock:   quartz.NewReal(),
		timings: DefaultTimings(),
		bus:     NewEventBus(),
		logger:  logger.WithPrefix("game"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EventBus returns the bus the machine publishes on.
func (m *Machine) EventBus() EventBus {
	return m.bus
}

// SetWinHandler replaces the win handler.
func (m *Machine) SetWinHandler(fn WinFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWin = fn
}

// Begin starts a new session on b, discarding any previous one.
func (m *Machine) Begin(b *board.Board) {
	m.mu.Lock()
	m.cancelPendingLocked()
	m.board = b
	m.session = Session{TotalPairs: b.Pairs()}
	m.first, m.second = nil, nil
	m.clickable = true
	ev := SessionStartedEvent{
		Generation: m.generation,
		TotalPairs: m.session.TotalPairs,
		timestamp:  m.clock.Now(),
	}
	m.mu.Unlock()

	m.logger.Info("Session started", "generation", ev.Generation, "pairs", ev.TotalPairs)
	m.publish(ev)
}

// Invalidate tears down the current session. Pending deferred callbacks
// scheduled for it become no-ops.
func (m *Machine) Invalidate() {
	m.invalidate(nil)
}

// InvalidateIf tears down the session only while it is still generation
// gen, reporting whether it did. Work that outlives its session uses it so
// it cannot end a newer one.
func (m *Machine) InvalidateIf(gen uint64) bool {
	return m.invalidate(&gen)
}

func (m *Machine) invalidate(gen *uint64) bool {
	m.mu.Lock()
	if gen != nil && m.generation != *gen {
		current := m.generation
		m.mu.Unlock()
		m.logger.Debug("Keeping newer session", "generation", current, "stale", *gen)
		return false
	}
	if m.board == nil {
		m.cancelPendingLocked()
		m.mu.Unlock()
		return true
	}
	m.cancelPendingLocked()
	ev := SessionEndedEvent{
		Generation: m.generation,
		Score:      m.session.Score,
		timestamp:  m.clock.Now(),
	}
	m.board = nil
	m.session = Session{}
	m.first, m.second = nil, nil
	m.clickable = false
	m.mu.Unlock()

	m.logger.Info("Session ended", "generation", ev.Generation, "score", ev.Score)
	m.publish(ev)
	return true
}

// Handle applies one input event.
func (m *Machine) Handle(ev Event) error {
	switch e := ev.(type) {
	case TileSelected:
		return m.selectTile(e.ID)
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
}

// Select is shorthand for Handle(TileSelected{ID: id}).
func (m *Machine) Select(id board.TileID) error {
	return m.Handle(TileSelected{ID: id})
}

// Session returns a copy of the current tally.
func (m *Machine) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Snapshot returns a copy of the full machine state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Active:     m.board != nil,
		Session:    m.session,
		State:      m.stateLocked(),
		Clickable:  m.clickable,
		Generation: m.generation,
		Tiles:      m.board.Tiles(),
	}
}

func (m *Machine) stateLocked() State {
	switch {
	case m.first == nil:
		return StateIdle
	case m.second == nil:
		return StateOneSelected
	default:
		return StateLocked
	}
}

func (m *Machine) selectTile(id board.TileID) error {
	m.mu.Lock()

	if m.board == nil {
		m.mu.Unlock()
		m.logger.Debug("Ignoring selection with no active board", "tile", id)
		return nil
	}
	if !m.clickable {
		m.mu.Unlock()
		m.logger.Debug("Input locked, dropping selection", "tile", id)
		return nil
	}

	tile, err := m.board.Tile(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if tile.Matched {
		m.mu.Unlock()
		m.logger.Debug("Ignoring selection of matched tile", "tile", id)
		return nil
	}

	now := m.clock.Now()
	var events []GameEvent

	switch {
	case m.first == nil:
		m.first = &id
		_ = m.board.Reveal(id)
		tile.Revealed = true
		m.clickable = false
		events = append(events, TileRevealedEvent{Tile: tile, timestamp: now})
		m.scheduleLocked(m.timings.Unlock, "unlock", m.unlockLocked)
		m.logger.Debug("First tile selected", "tile", id, "token", tile.Token)

	case *m.first == id:
		// Re-selecting the face-up tile cancels nothing and costs nothing.
		m.clickable = true
		m.logger.Debug("Same tile selected twice", "tile", id)

	default:
		m.second = &id
		_ = m.board.Reveal(id)
		tile.Revealed = true
		m.clickable = false
		events = append(events, TileRevealedEvent{Tile: tile, timestamp: now})

		first, _ := m.board.Tile(*m.first)
		if first.Token == tile.Token {
			events = append(events, m.matchLocked(first.ID, tile.ID, tile.Token, now)...)
		} else {
			m.logger.Debug("Mismatch", "first", first.ID, "second", id)
			m.scheduleLocked(m.timings.Mismatch, "mismatch", m.mismatchLocked)
		}
	}

	m.mu.Unlock()
	m.publish(events...)
	return nil
}

func (m *Machine) matchLocked(a, b board.TileID, token board.Token, now time.Time) []GameEvent {
	_ = m.board.MarkMatched(a)
	_ = m.board.MarkMatched(b)
	m.first, m.second = nil, nil
	m.clickable = true
	m.session.MatchedPairs++
	m.session.Score += 2

	m.logger.Debug("Pair matched",
		"token", token,
		"score", m.session.Score,
		"matched", m.session.MatchedPairs,
		"total", m.session.TotalPairs)

	if m.session.Won() {
		m.scheduleLocked(m.timings.Win, "win", m.winLocked)
	}

	return []GameEvent{PairMatchedEvent{
		Tiles:        [2]board.TileID{a, b},
		Token:        token,
		Score:        m.session.Score,
		MatchedPairs: m.session.MatchedPairs,
		timestamp:    now,
	}}
}

// deferred is run under the machine lock when a scheduled callback fires
// for the current generation. It may return events to publish and a
// function to call after the lock is released.
type deferred func() ([]GameEvent, func())

func (m *Machine) scheduleLocked(d time.Duration, tag string, fn deferred) {
	gen := m.generation
	t := m.clock.AfterFunc(d, func() {
		m.mu.Lock()
		if m.generation != gen {
			m.mu.Unlock()
			m.logger.Debug("Dropping stale callback", "callback", tag, "generation", gen)
			return
		}
		events, after := fn()
		m.mu.Unlock()

		m.publish(events...)
		if after != nil {
			after()
		}
	}, tag)
	m.timers = append(m.timers, t)
}

func (m *Machine) cancelPendingLocked() {
	for _, t := range m.timers {
		t.Stop()
	}
	m.timers = nil
	m.generation++
}

func (m *Machine) unlockLocked() ([]GameEvent, func()) {
	m.clickable = true
	return []GameEvent{InputUnlockedEvent{timestamp: m.clock.Now()}}, nil
}

func (m *Machine) mismatchLocked() ([]GameEvent, func()) {
	if m.first == nil || m.second == nil {
		return nil, nil
	}
	a, b := *m.first, *m.second
	_ = m.board.Hide(a)
	_ = m.board.Hide(b)
	m.first, m.second = nil, nil
	m.clickable = true
	m.session.Score--

	m.logger.Debug("Mismatch resolved", "first", a, "second", b, "score", m.session.Score)

	return []GameEvent{TilesHiddenEvent{
		Tiles:     [2]board.TileID{a, b},
		Score:     m.session.Score,
		timestamp: m.clock.Now(),
	}}, nil
}

func (m *Machine) winLocked() ([]GameEvent, func()) {
	score := m.session.Score
	gen := m.generation
	onWin := m.onWin
	m.logger.Info("Game won", "score", score)

	ev := GameWonEvent{Score: score, timestamp: m.clock.Now()}
	if onWin == nil {
		return []GameEvent{ev}, nil
	}
	return []GameEvent{ev}, func() { onWin(score, gen) }
}

func (m *Machine) publish(events ...GameEvent) {
	if m.bus == nil {
		return
	}
	for _, ev := range events {
		m.bus.Publish(ev)
	}
}
