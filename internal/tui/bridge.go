package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/memorymatch/internal/game"
	"github.com/lox/memorymatch/internal/prompt"
)

// promptRequestMsg asks the model to open a text prompt.
type promptRequestMsg struct {
	message string
	reply   chan promptReply
}

type promptReply struct {
	value string
	ok    bool
}

// announceRequestMsg asks the model to show a message until dismissed.
type announceRequestMsg struct {
	message string
	ack     chan struct{}
}

// refreshMsg tells the model to re-read the controller snapshot.
type refreshMsg struct {
	event game.EventType
}

// Bridge lets code running outside the Bubble Tea loop use the terminal as
// a prompt.UI. Requests are queued for the model, and callers block until
// the player answers or the bridge is closed.
type Bridge struct {
	msgs      chan tea.Msg
	refresh   chan refreshMsg
	done      chan struct{}
	closeOnce sync.Once
}

var _ prompt.UI = (*Bridge)(nil)

// NewBridge creates an open bridge.
func NewBridge() *Bridge {
	return &Bridge{
		msgs:    make(chan tea.Msg, 64),
		refresh: make(chan refreshMsg, 1),
		done:    make(chan struct{}),
	}
}

// Prompt shows message with a text input and waits for the answer.
func (b *Bridge) Prompt(ctx context.Context, message string) (string, bool, error) {
	reply := make(chan promptReply, 1)
	if err := b.send(ctx, promptRequestMsg{message: message, reply: reply}); err != nil {
		return "", false, err
	}

	select {
	case r := <-reply:
		return r.value, r.ok, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-b.done:
		return "", false, prompt.ErrClosed
	}
}

// Announce shows message and waits for it to be dismissed.
func (b *Bridge) Announce(ctx context.Context, message string) error {
	ack := make(chan struct{}, 1)
	if err := b.send(ctx, announceRequestMsg{message: message, ack: ack}); err != nil {
		return err
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return prompt.ErrClosed
	}
}

func (b *Bridge) send(ctx context.Context, msg tea.Msg) error {
	select {
	case <-b.done:
		return prompt.ErrClosed
	default:
	}

	select {
	case b.msgs <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return prompt.ErrClosed
	}
}

// OnEvent forwards bus events as refresh requests. At most one refresh is
// pending; a refresh re-reads the whole snapshot, so a pending one already
// covers this event.
func (b *Bridge) OnEvent(event game.GameEvent) {
	select {
	case b.refresh <- refreshMsg{event: event.EventType()}:
	default:
	}
}

// Listen returns a command that delivers the next queued request or
// pending refresh.
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.msgs:
			return msg
		case msg := <-b.refresh:
			return msg
		case <-b.done:
			return nil
		}
	}
}

// Close unblocks every waiting caller with prompt.ErrClosed.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
