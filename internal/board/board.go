// Package board materialises a shuffled token sequence into a row of
// selectable tiles.
package board

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTile is returned for a TileID that is not on the board.
	ErrUnknownTile = errors.New("unknown tile")
	// ErrUnpaired is returned when a token does not appear exactly twice.
	ErrUnpaired = errors.New("token is not paired")
)

// Token identifies one member of a matchable pair, e.g. a color name or hex code.
type Token string

// TileID is a tile's position in the dealt sequence.
type TileID int

// Tile is a selectable unit bound to exactly one token.
type Tile struct {
	ID       TileID `json:"id"`
	Token    Token  `json:"token"`
	Revealed bool   `json:"revealed"`
	Matched  bool   `json:"matched"`
}

// Board holds the tiles for one session in display order.
type Board struct {
	tiles []Tile
}

// Build creates one hidden tile per token, in the order given.
func Build(tokens []Token) *Board {
	b := &Board{tiles: make([]Tile, len(tokens))}
	for i, tok := range tokens {
		b.tiles[i] = Tile{ID: TileID(i), Token: tok}
	}
	return b
}

// Duplicate returns every token in distinct twice, preserving order.
func Duplicate(distinct []Token) []Token {
	out := make([]Token, 0, len(distinct)*2)
	out = append(out, distinct...)
	out = append(out, distinct...)
	return out
}

// Validate reports ErrUnpaired unless every distinct token appears exactly twice.
func Validate(tokens []Token) error {
	counts := make(map[Token]int, len(tokens)/2)
	for _, tok := range tokens {
		counts[tok]++
	}
	for tok, n := range counts {
		if n != 2 {
			return fmt.Errorf("%w: %q appears %d times", ErrUnpaired, tok, n)
		}
	}
	return nil
}

// Len returns the number of tiles.
func (b *Board) Len() int {
	if b == nil {
		return 0
	}
	return len(b.tiles)
}

// Pairs returns the number of pairs on the board.
func (b *Board) Pairs() int {
	return b.Len() / 2
}

// Tile returns a copy of the tile with the given ID.
func (b *Board) Tile(id TileID) (Tile, error) {
	if b == nil || id < 0 || int(id) >= len(b.tiles) {
		return Tile{}, fmt.Errorf("%w: %d", ErrUnknownTile, id)
	}
	return b.tiles[id], nil
}

// Tiles returns a copy of all tiles in display order.
func (b *Board) Tiles() []Tile {
	if b == nil {
		return nil
	}
	out := make([]Tile, len(b.tiles))
	copy(out, b.tiles)
	return out
}

// Reveal shows the tile's token.
func (b *Board) Reveal(id TileID) error {
	return b.update(id, func(t *Tile) { t.Revealed = true })
}

// Hide reverts the tile to its face-down display.
func (b *Board) Hide(id TileID) error {
	return b.update(id, func(t *Tile) { t.Revealed = false })
}

// MarkMatched pins the tile face-up for the rest of the session.
func (b *Board) MarkMatched(id TileID) error {
	return b.update(id, func(t *Tile) {
		t.Revealed = true
		t.Matched = true
	})
}

// AllMatched reports whether every tile has been matched.
func (b *Board) AllMatched() bool {
	if b.Len() == 0 {
		return false
	}
	for _, t := range b.tiles {
		if !t.Matched {
			return false
		}
	}
	return true
}

func (b *Board) update(id TileID, fn func(*Tile)) error {
	if b == nil || id < 0 || int(id) >= len(b.tiles) {
		return fmt.Errorf("%w: %d", ErrUnknownTile, id)
	}
	fn(&b.tiles[id])
	return nil
}
