// Package ledger keeps the persisted top-five high-score table.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/memorymatch/internal/prompt"
	"github.com/lox/memorymatch/internal/store"
)

const (
	// Size is the number of entries kept.
	Size = 5
	// MaxInitials is the longest accepted set of initials.
	MaxInitials = 4
	// DefaultKey is the record name the ledger is stored under.
	DefaultKey = "memScores"

	InitialsPrompt = "Enter your initials (letters only, up to 4 characters):"
	EmptyMessage   = "No high scores yet."
)

// ErrInvalidInitials is returned by NormalizeInitials.
var ErrInvalidInitials = errors.New("initials must be 1-4 letters")

// Entry is one row of the table.
type Entry struct {
	Initials string `json:"initials"`
	Score    int    `json:"score"`
}

// Ledger reads and writes the table through a store.
type Ledger struct {
	mu     sync.Mutex
	store  store.Store
	key    string
	logger *log.Logger
}

// New creates a ledger stored under key.
func New(st store.Store, key string, logger *log.Logger) *Ledger {
	if key == "" {
		key = DefaultKey
	}
	return &Ledger{store: st, key: key, logger: logger.WithPrefix("ledger")}
}

// Load returns the table sorted best first. An absent or unreadable
// record is an empty table.
func (l *Ledger) Load(ctx context.Context) ([]Entry, error) {
	data, err := l.store.Get(ctx, l.key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	var raw []Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		l.logger.Warn("Ignoring corrupt ledger record", "key", l.key, "error", err)
		return nil, nil
	}

	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		initials, err := NormalizeInitials(e.Initials)
		if err != nil {
			l.logger.Warn("Dropping invalid ledger entry", "initials", e.Initials, "score", e.Score)
			continue
		}
		entries = append(entries, Entry{Initials: initials, Score: e.Score})
	}
	sortEntries(entries)
	if len(entries) > Size {
		entries = entries[:Size]
	}
	return entries, nil
}

func (l *Ledger) save(ctx context.Context, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := l.store.Put(ctx, l.key, data); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// Qualifies reports whether score would enter a table holding entries.
// A score equal to the current lowest of a full table does not.
func Qualifies(entries []Entry, score int) bool {
	if len(entries) < Size {
		return true
	}
	return score > entries[Size-1].Score
}

// Insert adds e and returns the new table, best first, cut to Size.
// Ties keep the older entry ahead.
func Insert(entries []Entry, e Entry) []Entry {
	out := append(slices.Clone(entries), e)
	sortEntries(out)
	if len(out) > Size {
		out = out[:Size]
	}
	return out
}

func sortEntries(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return b.Score - a.Score
	})
}

// NormalizeInitials trims and uppercases s and keeps the first four
// characters, which must all be letters.
func NormalizeInitials(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) > MaxInitials {
		s = s[:MaxInitials]
	}
	if s == "" {
		return "", ErrInvalidInitials
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidInitials
		}
	}
	return s, nil
}

// Record offers score to the table. When it qualifies the player is asked
// for initials until they give valid ones or cancel; the updated table is
// then saved and announced. recorded is false when the score did not
// qualify or the player cancelled.
func (l *Ledger) Record(ctx context.Context, score int, ui prompt.UI) (recorded bool, err error) {
	entries, err := l.Load(ctx)
	if err != nil {
		return false, err
	}
	if !Qualifies(entries, score) {
		l.logger.Debug("Score does not qualify", "score", score)
		return false, nil
	}

	initials, ok, err := askInitials(ctx, ui)
	if err != nil || !ok {
		if err == nil {
			l.logger.Debug("Initials prompt cancelled", "score", score)
		}
		return false, err
	}

	l.mu.Lock()
	// Reload in case the table changed while the prompt was open.
	entries, err = l.Load(ctx)
	if err != nil {
		l.mu.Unlock()
		return false, err
	}
	if !Qualifies(entries, score) {
		l.mu.Unlock()
		l.logger.Warn("Score no longer qualifies, table filled while prompting", "initials", initials, "score", score)
		return false, nil
	}
	entries = Insert(entries, Entry{Initials: initials, Score: score})
	err = l.save(ctx, entries)
	l.mu.Unlock()
	if err != nil {
		return false, err
	}

	l.logger.Info("Recorded high score", "initials", initials, "score", score)

	msg := fmt.Sprintf("Game complete! Your score is: %d\n\nTop 5 Scores:\n%s", score, FormatTable(entries))
	if err := ui.Announce(ctx, msg); err != nil {
		return true, err
	}
	return true, nil
}

func askInitials(ctx context.Context, ui prompt.Prompter) (string, bool, error) {
	for {
		answer, ok, err := ui.Prompt(ctx, InitialsPrompt)
		if err != nil || !ok {
			return "", false, err
		}
		if initials, err := NormalizeInitials(answer); err == nil {
			return initials, true, nil
		}
	}
}

// Display announces the current table.
func (l *Ledger) Display(ctx context.Context, ui prompt.Announcer) error {
	entries, err := l.Load(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return ui.Announce(ctx, EmptyMessage)
	}
	return ui.Announce(ctx, FormatTable(entries))
}

// Clear erases the table.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.Delete(ctx, l.key); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	l.logger.Info("Cleared high scores")
	return nil
}

// FormatTable renders one "rank. INITIALS: score" line per entry.
func FormatTable(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(e.Initials)
		b.WriteString(": ")
		b.WriteString(strconv.Itoa(e.Score))
	}
	return b.String()
}
