package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console is a line-oriented UI over a reader and writer. End of input
// counts as cancelling the prompt.
type Console struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewConsole creates a console UI.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Prompt writes message followed by "> " and reads one line.
func (c *Console) Prompt(ctx context.Context, message string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.out, "%s\n> ", message); err != nil {
		return "", false, fmt.Errorf("writing prompt: %w", err)
	}

	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line == "" {
				fmt.Fprintln(c.out)
				return "", false, nil
			}
		} else {
			return "", false, fmt.Errorf("reading answer: %w", err)
		}
	}
	return strings.TrimRight(line, "\r\n"), true, nil
}

// Announce writes message on its own lines.
func (c *Console) Announce(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.out, "%s\n", message); err != nil {
		return fmt.Errorf("writing announcement: %w", err)
	}
	return nil
}
