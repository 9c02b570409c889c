package server

import (
	"encoding/json"
	"time"

	"github.com/lox/memorymatch/internal/board"
	"github.com/lox/memorymatch/internal/palette"
	"github.com/lox/memorymatch/internal/session"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type SelectTileData struct {
	TileID board.TileID `json:"tileId"`
}

type PromptResponseData struct {
	Value     string `json:"value"`
	Cancelled bool   `json:"cancelled"`
}

// Server → Client Messages

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PromptData struct {
	Message string `json:"message"`
}

type AnnounceData struct {
	Message string `json:"message"`
}

// TileState is a tile as the browser sees it. Color is only set once the
// tile is face-up.
type TileState struct {
	ID       board.TileID `json:"id"`
	Revealed bool         `json:"revealed"`
	Matched  bool         `json:"matched"`
	Color    string       `json:"color,omitempty"`
}

type StateData struct {
	View         string      `json:"view"`
	Active       bool        `json:"active"`
	Score        int         `json:"score"`
	MatchedPairs int         `json:"matchedPairs"`
	TotalPairs   int         `json:"totalPairs"`
	Clickable    bool        `json:"clickable"`
	Tiles        []TileState `json:"tiles"`
}

// StateFromSnapshot converts controller state for the wire, withholding
// the color of every face-down tile.
func StateFromSnapshot(s session.Snapshot) StateData {
	tiles := make([]TileState, len(s.Tiles))
	for i, t := range s.Tiles {
		tiles[i] = TileState{ID: t.ID, Revealed: t.Revealed, Matched: t.Matched}
		if t.Revealed {
			tiles[i].Color = palette.Hex(t.Token)
		}
	}
	return StateData{
		View:         s.View.String(),
		Active:       s.Active,
		Score:        s.Session.Score,
		MatchedPairs: s.Session.MatchedPairs,
		TotalPairs:   s.Session.TotalPairs,
		Clickable:    s.Clickable,
		Tiles:        tiles,
	}
}
