package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	tokens := []Token{"red", "blue", "red", "blue"}
	b := Build(tokens)

	require.Equal(t, 4, b.Len())
	assert.Equal(t, 2, b.Pairs())

	for i, tile := range b.Tiles() {
		assert.Equal(t, TileID(i), tile.ID)
		assert.Equal(t, tokens[i], tile.Token)
		assert.False(t, tile.Revealed, "tile %d should start hidden", i)
		assert.False(t, tile.Matched, "tile %d should start unmatched", i)
	}
}

func TestBuildEmpty(t *testing.T) {
	b := Build(nil)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Tiles())
	assert.False(t, b.AllMatched())
}

func TestNilBoard(t *testing.T) {
	var b *Board
	assert.Equal(t, 0, b.Len())
	assert.Nil(t, b.Tiles())

	_, err := b.Tile(0)
	assert.ErrorIs(t, err, ErrUnknownTile)
	assert.ErrorIs(t, b.Reveal(0), ErrUnknownTile)
}

func TestDuplicate(t *testing.T) {
	got := Duplicate([]Token{"red", "blue", "green"})
	assert.Equal(t, []Token{"red", "blue", "green", "red", "blue", "green"}, got)
	require.NoError(t, Validate(got))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []Token
		wantErr bool
	}{
		{"empty", nil, false},
		{"one pair", []Token{"red", "red"}, false},
		{"two pairs shuffled", []Token{"red", "blue", "blue", "red"}, false},
		{"single", []Token{"red"}, true},
		{"triple", []Token{"red", "red", "red", "blue", "blue"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tokens)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnpaired)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRevealHideMatch(t *testing.T) {
	b := Build([]Token{"red", "red"})

	require.NoError(t, b.Reveal(0))
	tile, err := b.Tile(0)
	require.NoError(t, err)
	assert.True(t, tile.Revealed)

	require.NoError(t, b.Hide(0))
	tile, _ = b.Tile(0)
	assert.False(t, tile.Revealed)

	require.NoError(t, b.MarkMatched(0))
	require.NoError(t, b.MarkMatched(1))
	assert.True(t, b.AllMatched())

	tile, _ = b.Tile(1)
	assert.True(t, tile.Revealed)
	assert.True(t, tile.Matched)
}

func TestUnknownTile(t *testing.T) {
	b := Build([]Token{"red", "red"})

	for _, id := range []TileID{-1, 2, 100} {
		_, err := b.Tile(id)
		assert.ErrorIs(t, err, ErrUnknownTile)
		assert.ErrorIs(t, b.Reveal(id), ErrUnknownTile)
		assert.ErrorIs(t, b.Hide(id), ErrUnknownTile)
		assert.ErrorIs(t, b.MarkMatched(id), ErrUnknownTile)
	}
}

func TestTilesReturnsCopy(t *testing.T) {
	b := Build([]Token{"red", "red"})
	tiles := b.Tiles()
	tiles[0].Revealed = true

	tile, _ := b.Tile(0)
	assert.False(t, tile.Revealed)
}
