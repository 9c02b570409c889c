package game

import (
	"sync"
	"time"

	"github.com/lox/memorymatch/internal/board"
)

// EventType represents a game event type with type safety
type EventType string

// EventType constants for game domain events
const (
	EventTypeSessionStarted EventType = "session_started"
	EventTypeSessionEnded   EventType = "session_ended"
	EventTypeTileRevealed   EventType = "tile_revealed"
	EventTypePairMatched    EventType = "pair_matched"
	EventTypeTilesHidden    EventType = "tiles_hidden"
	EventTypeInputUnlocked  EventType = "input_unlocked"
	EventTypeGameWon        EventType = "game_won"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// GameEvent represents anything observable that happens during a session
type GameEvent interface {
	EventType() EventType
	Timestamp() time.Time
}

// SessionStartedEvent is published when a fresh board is dealt
type SessionStartedEvent struct {
	Generation uint64
	TotalPairs int
	timestamp  time.Time
}

func (e SessionStartedEvent) EventType() EventType { return EventTypeSessionStarted }
func (e SessionStartedEvent) Timestamp() time.Time { return e.timestamp }

// SessionEndedEvent is published when the board is torn down
type SessionEndedEvent struct {
	Generation uint64
	Score      int
	timestamp  time.Time
}

func (e SessionEndedEvent) EventType() EventType { return EventTypeSessionEnded }
func (e SessionEndedEvent) Timestamp() time.Time { return e.timestamp }

// TileRevealedEvent is published when a tile is turned face-up by a selection
type TileRevealedEvent struct {
	Tile      board.Tile
	timestamp time.Time
}

func (e TileRevealedEvent) EventType() EventType { return EventTypeTileRevealed }
func (e TileRevealedEvent) Timestamp() time.Time { return e.timestamp }

// PairMatchedEvent is published when two selected tiles share a token
type PairMatchedEvent struct {
	Tiles        [2]board.TileID
	Token        board.Token
	Score        int
	MatchedPairs int
	timestamp    time.Time
}

func (e PairMatchedEvent) EventType() EventType { return EventTypePairMatched }
func (e PairMatchedEvent) Timestamp() time.Time { return e.timestamp }

// TilesHiddenEvent is published once a mismatch has been shown long enough
type TilesHiddenEvent struct {
	Tiles     [2]board.TileID
	Score     int
	timestamp time.Time
}

func (e TilesHiddenEvent) EventType() EventType { return EventTypeTilesHidden }
func (e TilesHiddenEvent) Timestamp() time.Time { return e.timestamp }

// InputUnlockedEvent is published when the post-reveal lock expires
type InputUnlockedEvent struct {
	timestamp time.Time
}

func (e InputUnlockedEvent) EventType() EventType { return EventTypeInputUnlocked }
func (e InputUnlockedEvent) Timestamp() time.Time { return e.timestamp }

// GameWonEvent is published when the win announcement is due
type GameWonEvent struct {
	Score     int
	timestamp time.Time
}

func (e GameWonEvent) EventType() EventType { return EventTypeGameWon }
func (e GameWonEvent) Timestamp() time.Time { return e.timestamp }

// EventSubscriber can subscribe to game events
type EventSubscriber interface {
	OnEvent(event GameEvent)
}

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event GameEvent)
}

// SimpleEventBus is a basic in-memory event bus implementation.
// Deferred callbacks publish from timer goroutines, so the subscriber
// list is guarded.
type SimpleEventBus struct {
	mu          sync.RWMutex
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() EventBus {
	return &SimpleEventBus{
		subscribers: make([]EventSubscriber, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers in subscription order
func (bus *SimpleEventBus) Publish(event GameEvent) {
	bus.mu.RLock()
	subs := make([]EventSubscriber, len(bus.subscribers))
	copy(subs, bus.subscribers)
	bus.mu.RUnlock()

	for _, subscriber := range subs {
		subscriber.OnEvent(event)
	}
}
