// Package palette supplies the colors tiles are drawn with: the fixed
// five-color standard set and randomly generated sets whose members are
// perceptually far apart.
package palette

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/lox/memorymatch/internal/board"
)

// ErrExhausted is returned when no sufficiently distinct color was found
// within the attempt budget.
var ErrExhausted = errors.New("palette: could not find a distinct color")

// Standard is the fixed set used by the standard game.
var Standard = []board.Token{"red", "blue", "green", "orange", "purple"}

var named = map[board.Token]string{
	"red":    "#ff0000",
	"blue":   "#0000ff",
	"green":  "#008000",
	"orange": "#ffa500",
	"purple": "#800080",
}

// StandardTokens returns a fresh copy of Standard, safe to shuffle.
func StandardTokens() []board.Token {
	return append([]board.Token(nil), Standard...)
}

// Hex returns the hex code a token is drawn with. Named standard colors
// map to their CSS values; anything else is assumed to be hex already.
func Hex(token board.Token) string {
	if hex, ok := named[board.Token(strings.ToLower(string(token)))]; ok {
		return hex
	}
	return string(token)
}

// Distance is the CIEDE2000 difference between two colors on the usual
// 0-100 scale.
func Distance(a, b string) (float64, error) {
	ca, err := colorful.Hex(Hex(board.Token(a)))
	if err != nil {
		return 0, fmt.Errorf("parse color %q: %w", a, err)
	}
	cb, err := colorful.Hex(Hex(board.Token(b)))
	if err != nil {
		return 0, fmt.Errorf("parse color %q: %w", b, err)
	}
	return ca.DistanceCIEDE2000(cb) * 100, nil
}

// Generator produces random color sets.
type Generator struct {
	// MinDistance is the smallest CIEDE2000 difference allowed between
	// any two colors in a set.
	MinDistance float64
	// MaxAttempts bounds the random draws spent on each color.
	MaxAttempts int

	rng *rand.Rand
}

// NewGenerator creates a generator. A nil rng uses the global source.
func NewGenerator(rng *rand.Rand, minDistance float64, maxAttempts int) *Generator {
	return &Generator{MinDistance: minDistance, MaxAttempts: maxAttempts, rng: rng}
}

func (g *Generator) float() float64 {
	if g.rng == nil {
		return rand.Float64()
	}
	return g.rng.Float64()
}

// Generate returns n distinct hex colors, each at least MinDistance from
// every other.
func (g *Generator) Generate(n int) ([]board.Token, error) {
	if n < 0 {
		return nil, fmt.Errorf("palette: negative color count %d", n)
	}

	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	picked := make([]colorful.Color, 0, n)
	tokens := make([]board.Token, 0, n)

	for len(tokens) < n {
		found := false
		for range attempts {
			c := colorful.Color{R: g.float(), G: g.float(), B: g.float()}
			if g.distinct(c, picked) {
				picked = append(picked, c)
				tokens = append(tokens, board.Token(c.Hex()))
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: placed %d of %d colors after %d attempts",
				ErrExhausted, len(tokens), n, attempts)
		}
	}
	return tokens, nil
}

func (g *Generator) distinct(c colorful.Color, picked []colorful.Color) bool {
	hex := c.Hex()
	for _, p := range picked {
		if p.Hex() == hex {
			return false
		}
		if c.DistanceCIEDE2000(p)*100 < g.MinDistance {
			return false
		}
	}
	return true
}
