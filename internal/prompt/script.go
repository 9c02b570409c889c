package prompt

import (
	"context"
	"fmt"
	"sync"
)

// Answer is one scripted reply to a prompt.
type Answer struct {
	Value     string
	Cancelled bool
}

// Reply answers a prompt with value.
func Reply(value string) Answer { return Answer{Value: value} }

// Cancel answers a prompt by cancelling it.
func Cancel() Answer { return Answer{Cancelled: true} }

// Script is a UI that replays queued answers and records everything it
// was asked to show. Running out of answers returns ErrClosed.
type Script struct {
	mu            sync.Mutex
	answers       []Answer
	prompts       []string
	announcements []string
	announced     chan string
}

// NewScript creates a script that will reply with answers in order.
func NewScript(answers ...Answer) *Script {
	return &Script{
		answers:   answers,
		announced: make(chan string, 64),
	}
}

// Push queues more answers.
func (s *Script) Push(answers ...Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, answers...)
}

func (s *Script) Prompt(ctx context.Context, message string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, message)
	if len(s.answers) == 0 {
		return "", false, fmt.Errorf("no scripted answer for %q: %w", message, ErrClosed)
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	if a.Cancelled {
		return "", false, nil
	}
	return a.Value, true, nil
}

func (s *Script) Announce(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.announcements = append(s.announcements, message)
	s.mu.Unlock()

	select {
	case s.announced <- message:
	default:
	}
	return nil
}

// Prompts returns every prompt message seen so far.
func (s *Script) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Announcements returns every announcement seen so far.
func (s *Script) Announcements() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.announcements...)
}

// Announced delivers each announcement as it happens, for tests that
// need to wait on asynchronous flows.
func (s *Script) Announced() <-chan string {
	return s.announced
}
