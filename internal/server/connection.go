package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lox/memorymatch/internal/board"
	"github.com/lox/memorymatch/internal/game"
	"github.com/lox/memorymatch/internal/prompt"
	"github.com/lox/memorymatch/internal/session"
)

// Connection is one browser tab. It owns a session controller and acts as
// that controller's prompt.UI by round-tripping requests over the socket.
type Connection struct {
	id         string
	conn       *websocket.Conn
	send       chan *Message
	logger     *log.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once
	controller *session.Controller
	busy       atomic.Bool

	mu      sync.Mutex
	prompts map[string]chan PromptResponseData
	acks    map[string]chan struct{}
}

var (
	_ prompt.UI            = (*Connection)(nil)
	_ game.EventSubscriber = (*Connection)(nil)
)

// NewConnection creates a new connection wrapper. newController is called
// with the connection as the controller's UI.
func NewConnection(conn *websocket.Conn, logger *log.Logger, newController ControllerFactory) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	c := &Connection{
		id:      id,
		conn:    conn,
		send:    make(chan *Message, 256),
		logger:  logger.WithPrefix("conn").With("conn", id[:8]),
		ctx:     ctx,
		cancel:  cancel,
		prompts: make(map[string]chan PromptResponseData),
		acks:    make(map[string]chan struct{}),
	}
	c.controller = newController(c)
	c.controller.EventBus().Subscribe(c)
	return c
}

// ID returns the connection's unique identifier.
func (c *Connection) ID() string {
	return c.id
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
	c.sendState()
}

// Done is closed once the connection has shut down.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection and ends its session.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.controller.EventBus().Unsubscribe(c)
		c.controller.Close()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *Message) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// ErrConnectionClosed is returned when sending on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type)

	switch msg.Type {
	case MessageTypeStartStandard:
		c.runFlow("start_failed", c.controller.StartStandard)

	case MessageTypeStartRandom:
		c.runFlow("start_failed", c.controller.StartRandom)

	case MessageTypeShowScores:
		c.runFlow("scores_failed", c.controller.ShowLedger)

	case MessageTypeClearScores:
		if err := c.controller.ClearLedger(c.ctx); err != nil {
			c.sendError("scores_failed", err.Error())
		}

	case MessageTypeReturnToMenu:
		c.controller.ResetToMenu()

	case MessageTypeSelectTile:
		var data SelectTileData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse select tile data")
			return
		}
		if err := c.controller.Select(data.TileID); err != nil {
			if errors.Is(err, board.ErrUnknownTile) {
				c.sendError("unknown_tile", err.Error())
				return
			}
			c.sendError("select_failed", err.Error())
		}

	case MessageTypePromptResponse:
		var data PromptResponseData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse prompt response data")
			return
		}
		c.resolvePrompt(msg.RequestID, data)

	case MessageTypeAnnounceAck:
		c.resolveAck(msg.RequestID)

	default:
		c.logger.Warn("Unknown message type", "type", msg.Type)
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// runFlow runs a controller operation that may block on the player, off
// the read loop so prompt responses can still arrive. One flow runs at a
// time.
func (c *Connection) runFlow(code string, fn func(context.Context) error) {
	if !c.busy.CompareAndSwap(false, true) {
		c.sendError("busy", "Another action is in progress")
		return
	}
	go func() {
		defer c.busy.Store(false)
		err := fn(c.ctx)
		switch {
		case err == nil || c.ctx.Err() != nil:
		case errors.Is(err, session.ErrBusy):
			c.sendError("busy", "The last game is still finishing")
		default:
			c.logger.Error("Action failed", "error", err)
			c.sendError(code, err.Error())
		}
	}()
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}
	_ = c.SendMessage(errorMsg)
}

func (c *Connection) sendState() {
	msg, err := NewMessage(MessageTypeState, StateFromSnapshot(c.controller.Snapshot()))
	if err != nil {
		c.logger.Error("Failed to create state message", "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

// OnEvent pushes fresh state to the browser after every game event.
func (c *Connection) OnEvent(event game.GameEvent) {
	c.logger.Debug("Game event", "type", event.EventType())
	c.sendState()
}

// Prompt asks the browser for a line of text.
func (c *Connection) Prompt(ctx context.Context, message string) (string, bool, error) {
	id := uuid.NewString()
	reply := make(chan PromptResponseData, 1)

	c.mu.Lock()
	c.prompts[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.prompts, id)
		c.mu.Unlock()
	}()

	msg, err := NewMessage(MessageTypePrompt, PromptData{Message: message})
	if err != nil {
		return "", false, err
	}
	msg.RequestID = id
	if err := c.SendMessage(msg); err != nil {
		return "", false, prompt.ErrClosed
	}

	select {
	case r := <-reply:
		if r.Cancelled {
			return "", false, nil
		}
		return r.Value, true, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-c.ctx.Done():
		return "", false, prompt.ErrClosed
	}
}

// Announce shows message in the browser and waits for acknowledgement.
func (c *Connection) Announce(ctx context.Context, message string) error {
	id := uuid.NewString()
	ack := make(chan struct{}, 1)

	c.mu.Lock()
	c.acks[id] = ack
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.acks, id)
		c.mu.Unlock()
	}()

	msg, err := NewMessage(MessageTypeAnnounce, AnnounceData{Message: message})
	if err != nil {
		return err
	}
	msg.RequestID = id
	if err := c.SendMessage(msg); err != nil {
		return prompt.ErrClosed
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return prompt.ErrClosed
	}
}

func (c *Connection) resolvePrompt(id string, data PromptResponseData) {
	c.mu.Lock()
	reply, ok := c.prompts[id]
	c.mu.Unlock()
	if !ok {
		c.logger.Warn("Response for unknown prompt", "requestId", id)
		return
	}
	select {
	case reply <- data:
	default:
	}
}

func (c *Connection) resolveAck(id string) {
	c.mu.Lock()
	ack, ok := c.acks[id]
	c.mu.Unlock()
	if !ok {
		c.logger.Warn("Ack for unknown announcement", "requestId", id)
		return
	}
	select {
	case ack <- struct{}{}:
	default:
	}
}
