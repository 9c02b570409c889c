package prompt

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolePrompt(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValue string
		wantOK    bool
	}{
		{name: "line", input: "abc\n", wantValue: "abc", wantOK: true},
		{name: "crlf", input: "abc\r\n", wantValue: "abc", wantOK: true},
		{name: "empty line", input: "\n", wantValue: "", wantOK: true},
		{name: "no newline before eof", input: "xyz", wantValue: "xyz", wantOK: true},
		{name: "eof cancels", input: "", wantValue: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := NewConsole(strings.NewReader(tt.input), &out)

			value, ok, err := c.Prompt(context.Background(), "Enter your initials:")
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantValue, value)
			assert.True(t, strings.HasPrefix(out.String(), "Enter your initials:\n> "))
		})
	}
}

func TestConsoleSequentialPrompts(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("one\ntwo\n"), &out)

	first, ok, err := c.Prompt(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, ok)
	second, ok, err := c.Prompt(context.Background(), "b")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "one", first)
	assert.Equal(t, "two", second)
}

func TestConsoleAnnounce(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader(""), &out)

	require.NoError(t, c.Announce(context.Background(), "No high scores yet."))
	assert.Equal(t, "No high scores yet.\n", out.String())
}

func TestConsoleHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewConsole(strings.NewReader("abc\n"), &bytes.Buffer{})
	_, _, err := c.Prompt(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, c.Announce(ctx, "x"), context.Canceled)
}

func TestScript(t *testing.T) {
	s := NewScript(Reply("7"), Cancel())
	ctx := context.Background()

	v, ok, err := s.Prompt(ctx, "How many?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "7", v)

	_, ok, err = s.Prompt(ctx, "Initials?")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.Prompt(ctx, "More?")
	assert.ErrorIs(t, err, ErrClosed)

	require.NoError(t, s.Announce(ctx, "hello"))
	assert.Equal(t, []string{"How many?", "Initials?", "More?"}, s.Prompts())
	assert.Equal(t, []string{"hello"}, s.Announcements())
	assert.Equal(t, "hello", <-s.Announced())
}

func TestScriptPush(t *testing.T) {
	s := NewScript()
	s.Push(Reply("a"))

	v, ok, err := s.Prompt(context.Background(), "?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
}
