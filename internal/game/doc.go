// Package game implements the turn logic of the memory-matching game.
//
// A Machine owns one board at a time. Each click arrives as a TileSelected
// event; the first tile of a turn is revealed and input is locked briefly,
// the second tile is compared against it and either both are marked matched
// (+2) or both are hidden again after a delay (-1).
//
//	m := game.NewMachine(logger, game.WithWinHandler(func(score int, gen uint64) { ... }))
//	m.Begin(board.Build(tokens))
//	_ = m.Select(0)
//
// # Deferred work
//
// The unlock, mismatch and win delays are scheduled on a quartz.Clock. Every
// callback captures the session generation current at scheduling time;
// Begin and Invalidate bump the generation, so callbacks that outlive their
// session do nothing. The win handler receives the generation it was
// scheduled in, and InvalidateIf lets it end that session without touching
// a newer one. Tests inject quartz.NewMock to drive the delays.
//
// # Events
//
// State changes are published on an EventBus after the machine's lock is
// released, so subscribers may call back into the Machine.
package game
