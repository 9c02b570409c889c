// Package prompt abstracts the blocking user interactions the game needs:
// asking for a line of text and showing a message until it is acknowledged.
package prompt

import (
	"context"
	"errors"
)

// ErrClosed is returned when the surface behind a UI has gone away.
var ErrClosed = errors.New("prompt: ui closed")

// Prompter asks the user for a line of text. A false ok means the user
// cancelled; cancellation is not an error.
type Prompter interface {
	Prompt(ctx context.Context, message string) (value string, ok bool, err error)
}

// Announcer shows a message and returns once the user has dismissed it.
type Announcer interface {
	Announce(ctx context.Context, message string) error
}

// UI is a presentation surface that can both prompt and announce.
type UI interface {
	Prompter
	Announcer
}
