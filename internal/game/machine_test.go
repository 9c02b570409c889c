package game

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/memorymatch/internal/board"
	"github.com/lox/memorymatch/internal/randutil"
)

// recorder captures published events for assertions
type recorder struct {
	mu     sync.Mutex
	events []GameEvent
}

func (r *recorder) OnEvent(ev GameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.EventType()
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type winCounter struct {
	mu          sync.Mutex
	scores      []int
	generations []uint64
}

func (w *winCounter) onWin(score int, gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scores = append(w.scores, score)
	w.generations = append(w.generations, gen)
}

func (w *winCounter) lastGeneration() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generations[len(w.generations)-1]
}

func (w *winCounter) calls() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]int(nil), w.scores...)
}

type fixture struct {
	m     *Machine
	clock *quartz.Mock
	rec   *recorder
	wins  *winCounter
	ctx   context.Context
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func newFixture(t *testing.T, tokens ...board.Token) *fixture {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	clock := quartz.NewMock(t)
	rec := &recorder{}
	wins := &winCounter{}
	bus := NewEventBus()
	bus.Subscribe(rec)

	m := NewMachine(quietLogger(),
		WithClock(clock),
		WithEventBus(bus),
		WithWinHandler(wins.onWin),
	)
	m.Begin(board.Build(tokens))
	rec.reset()

	return &fixture{m: m, clock: clock, rec: rec, wins: wins, ctx: ctx}
}

func (f *fixture) advance(d time.Duration) {
	f.clock.Advance(d).MustWait(f.ctx)
}

func (f *fixture) tile(t *testing.T, id board.TileID) board.Tile {
	t.Helper()
	for _, tile := range f.m.Snapshot().Tiles {
		if tile.ID == id {
			return tile
		}
	}
	t.Fatalf("tile %d not on board", id)
	return board.Tile{}
}

// Layout used by most tests: tiles 0,2 are red and 1,3 are blue.
var twoPairs = []board.Token{"red", "blue", "red", "blue"}

func TestBeginResetsSession(t *testing.T) {
	f := newFixture(t, twoPairs...)

	snap := f.m.Snapshot()
	assert.True(t, snap.Active)
	assert.Equal(t, Session{Score: 0, MatchedPairs: 0, TotalPairs: 2}, snap.Session)
	assert.Equal(t, StateIdle, snap.State)
	assert.True(t, snap.Clickable)
	assert.Len(t, snap.Tiles, 4)
}

func TestFirstSelectionLocksBriefly(t *testing.T) {
	f := newFixture(t, twoPairs...)

	require.NoError(t, f.m.Select(0))

	snap := f.m.Snapshot()
	assert.Equal(t, StateOneSelected, snap.State)
	assert.False(t, snap.Clickable)
	assert.True(t, f.tile(t, 0).Revealed)

	// A click during the lock is dropped, not queued.
	require.NoError(t, f.m.Select(2))
	assert.False(t, f.tile(t, 2).Revealed)
	assert.Equal(t, 0, f.m.Session().MatchedPairs)

	f.advance(300 * time.Millisecond)

	snap = f.m.Snapshot()
	assert.True(t, snap.Clickable)
	assert.Equal(t, StateOneSelected, snap.State)
	assert.Equal(t, []EventType{EventTypeTileRevealed, EventTypeInputUnlocked}, f.rec.types())
}

func TestMatchResolvesImmediately(t *testing.T) {
	f := newFixture(t, twoPairs...)

	require.NoError(t, f.m.Select(0))
	f.advance(300 * time.Millisecond)
	require.NoError(t, f.m.Select(2))

	snap := f.m.Snapshot()
	assert.Equal(t, Session{Score: 2, MatchedPairs: 1, TotalPairs: 2}, snap.Session)
	assert.Equal(t, StateIdle, snap.State)
	assert.True(t, snap.Clickable)

	for _, id := range []board.TileID{0, 2} {
		tile := f.tile(t, id)
		assert.True(t, tile.Revealed, "tile %d", id)
		assert.True(t, tile.Matched, "tile %d", id)
	}

	assert.Equal(t, []EventType{
		EventTypeTileRevealed,
		EventTypeInputUnlocked,
		EventTypeTileRevealed,
		EventTypePairMatched,
	}, f.rec.types())
}

func TestMismatchHidesAfterDelay(t *testing.T) {
	f := newFixture(t, twoPairs...)

	require.NoError(t, f.m.Select(0))
	f.advance(300 * time.Millisecond)
	require.NoError(t, f.m.Select(1))

	snap := f.m.Snapshot()
	assert.Equal(t, StateLocked, snap.State)
	assert.False(t, snap.Clickable)
	assert.Equal(t, 0, snap.Session.Score, "penalty applies only once the pair is hidden")
	assert.True(t, f.tile(t, 0).Revealed)
	assert.True(t, f.tile(t, 1).Revealed)

	// Locked: further clicks are dropped.
	require.NoError(t, f.m.Select(2))
	assert.False(t, f.tile(t, 2).Revealed)

	f.advance(1000 * time.Millisecond)

	snap = f.m.Snapshot()
	assert.Equal(t, -1, snap.Session.Score)
	assert.Equal(t, 0, snap.Session.MatchedPairs)
	assert.Equal(t, StateIdle, snap.State)
	assert.True(t, snap.Clickable)
	assert.False(t, f.tile(t, 0).Revealed)
	assert.False(t, f.tile(t, 1).Revealed)
}

func TestSameTileTwiceIsNoOp(t *testing.T) {
	f := newFixture(t, twoPairs...)

	require.NoError(t, f.m.Select(0))
	f.advance(300 * time.Millisecond)
	before := f.m.Session()

	require.NoError(t, f.m.Select(0))
	require.NoError(t, f.m.Select(0))

	snap := f.m.Snapshot()
	assert.Equal(t, before, snap.Session)
	assert.Equal(t, StateOneSelected, snap.State)
	assert.True(t, snap.Clickable)
	assert.True(t, f.tile(t, 0).Revealed)

	// The first selection is still in place: completing the pair works.
	require.NoError(t, f.m.Select(2))
	assert.Equal(t, 1, f.m.Session().MatchedPairs)
}

func TestMatchedTilesIgnored(t *testing.T) {
	f := newFixture(t, twoPairs...)

	require.NoError(t, f.m.Select(0))
	f.advance(300 * time.Millisecond)
	require.NoError(t, f.m.Select(2))

	f.rec.reset()
	require.NoError(t, f.m.Select(0))
	require.NoError(t, f.m.Select(2))

	assert.Empty(t, f.rec.types())
	assert.Equal(t, Session{Score: 2, MatchedPairs: 1, TotalPairs: 2}, f.m.Session())
}

func TestWinAnnouncedAfterDelay(t *testing.T) {
	f := newFixture(t, twoPairs...)

	for _, pair := range [][2]board.TileID{{0, 2}, {1, 3}} {
		require.NoError(t, f.m.Select(pair[0]))
		f.advance(300 * time.Millisecond)
		require.NoError(t, f.m.Select(pair[1]))
	}

	assert.Equal(t, Session{Score: 4, MatchedPairs: 2, TotalPairs: 2}, f.m.Session())
	assert.Empty(t, f.wins.calls(), "win handler waits for the delay")

	f.advance(500 * time.Millisecond)

	assert.Equal(t, []int{4}, f.wins.calls())
	types := f.rec.types()
	assert.Equal(t, EventTypeGameWon, types[len(types)-1])
}

func TestStandardBoardPerfectGame(t *testing.T) {
	colors := []board.Token{"red", "blue", "green", "orange", "purple"}
	tokens := board.Duplicate(colors)
	randutil.Shuffle(randutil.New(3), tokens)
	f := newFixture(t, tokens...)

	positions := make(map[board.Token][]board.TileID)
	for i, tok := range tokens {
		positions[tok] = append(positions[tok], board.TileID(i))
	}

	for _, c := range colors {
		ids := positions[c]
		require.NoError(t, f.m.Select(ids[0]))
		f.advance(300 * time.Millisecond)
		require.NoError(t, f.m.Select(ids[1]))
	}

	f.advance(500 * time.Millisecond)

	assert.Equal(t, Session{Score: 10, MatchedPairs: 5, TotalPairs: 5}, f.m.Session())
	assert.Equal(t, []int{10}, f.wins.calls(), "exactly one win notification")
}

func TestOneMismatchCostsOnePoint(t *testing.T) {
	f := newFixture(t, twoPairs...)

	require.NoError(t, f.m.Select(0))
	f.advance(300 * time.Millisecond)
	require.NoError(t, f.m.Select(1))
	f.advance(1000 * time.Millisecond)

	for _, pair := range [][2]board.TileID{{0, 2}, {1, 3}} {
		require.NoError(t, f.m.Select(pair[0]))
		f.advance(300 * time.Millisecond)
		require.NoError(t, f.m.Select(pair[1]))
	}
	f.advance(500 * time.Millisecond)

	assert.Equal(t, []int{3}, f.wins.calls())
}

func TestScoreMayGoNegative(t *testing.T) {
	f := newFixture(t, twoPairs...)

	for range 3 {
		require.NoError(t, f.m.Select(0))
		f.advance(300 * time.Millisecond)
		require.NoError(t, f.m.Select(1))
		f.advance(1000 * time.Millisecond)
	}
	assert.Equal(t, -3, f.m.Session().Score)
}

func TestBeginDropsPendingCallbacks(t *testing.T) {
	f := newFixture(t, twoPairs...)

	require.NoError(t, f.m.Select(0))
	f.advance(300 * time.Millisecond)
	require.NoError(t, f.m.Select(1))

	// Restart while the mismatch is still on display.
	f.m.Begin(board.Build(twoPairs))
	f.advance(1000 * time.Millisecond)

	snap := f.m.Snapshot()
	assert.Equal(t, 0, snap.Session.Score, "stale mismatch must not touch the new session")
	assert.Equal(t, StateIdle, snap.State)
	assert.True(t, snap.Clickable)
}

func TestInvalidateCancelsWin(t *testing.T) {
	f := newFixture(t, "red", "red")

	require.NoError(t, f.m.Select(0))
	f.advance(300 * time.Millisecond)
	require.NoError(t, f.m.Select(1))
	f.m.Invalidate()
	f.advance(500 * time.Millisecond)

	assert.Empty(t, f.wins.calls())
	snap := f.m.Snapshot()
	assert.False(t, snap.Active)
	assert.Empty(t, snap.Tiles)
	assert.Contains(t, f.rec.types(), EventTypeSessionEnded)
}

func TestInvalidateIfKeepsNewerSession(t *testing.T) {
	f := newFixture(t, "red", "red")

	require.NoError(t, f.m.Select(0))
	f.advance(300 * time.Millisecond)
	require.NoError(t, f.m.Select(1))
	f.advance(500 * time.Millisecond)
	require.Equal(t, []int{2}, f.wins.calls())
	won := f.wins.lastGeneration()
	assert.Equal(t, f.m.Snapshot().Generation, won)

	// A new board is dealt before the won session's follow-up finishes.
	f.m.Begin(board.Build(twoPairs))
	require.NoError(t, f.m.Select(0))

	assert.False(t, f.m.InvalidateIf(won))
	snap := f.m.Snapshot()
	assert.True(t, snap.Active, "newer session must survive")
	assert.Equal(t, 2, snap.Session.TotalPairs)
	assert.True(t, f.tile(t, 0).Revealed)

	assert.True(t, f.m.InvalidateIf(snap.Generation))
	assert.False(t, f.m.Snapshot().Active)
}

func TestSelectWithoutBoard(t *testing.T) {
	m := NewMachine(quietLogger(), WithClock(quartz.NewMock(t)))
	assert.NoError(t, m.Select(0))
	assert.False(t, m.Snapshot().Active)
}

func TestSelectUnknownTile(t *testing.T) {
	f := newFixture(t, twoPairs...)
	err := f.m.Select(42)
	assert.ErrorIs(t, err, board.ErrUnknownTile)
	assert.Equal(t, StateIdle, f.m.Snapshot().State)
}

type bogusEvent struct{}

func (bogusEvent) isEvent() {}

func TestHandleUnsupportedEvent(t *testing.T) {
	f := newFixture(t, twoPairs...)
	err := f.m.Handle(bogusEvent{})
	assert.Error(t, err)
}

func TestMatchedPairsNeverExceedTotal(t *testing.T) {
	colors := []board.Token{"a", "b", "c", "d"}
	tokens := board.Duplicate(colors)
	randutil.Shuffle(randutil.New(11), tokens)
	f := newFixture(t, tokens...)
	rng := randutil.New(12)

	for range 500 {
		if _, ok := f.clock.Peek(); ok && rng.IntN(2) == 0 {
			_, w := f.clock.AdvanceNext()
			w.MustWait(f.ctx)
		} else {
			require.NoError(t, f.m.Select(board.TileID(rng.IntN(len(tokens)))))
		}

		s := f.m.Session()
		require.LessOrEqual(t, s.MatchedPairs, s.TotalPairs)
		require.LessOrEqual(t, s.Score, 2*s.MatchedPairs)
	}

	assert.LessOrEqual(t, len(f.wins.calls()), 1)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "one_selected", StateOneSelected.String())
	assert.Equal(t, "locked", StateLocked.String())
	assert.Equal(t, "state(9)", State(9).String())
}
