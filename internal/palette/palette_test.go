package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/memorymatch/internal/board"
	"github.com/lox/memorymatch/internal/randutil"
)

func TestStandardTokensIsACopy(t *testing.T) {
	a := StandardTokens()
	a[0] = "black"
	assert.Equal(t, board.Token("red"), Standard[0])
	assert.Len(t, StandardTokens(), 5)
}

func TestHex(t *testing.T) {
	assert.Equal(t, "#ff0000", Hex("red"))
	assert.Equal(t, "#800080", Hex("Purple"))
	assert.Equal(t, "#123abc", Hex("#123abc"))
}

func TestDistance(t *testing.T) {
	d, err := Distance("#ffffff", "#ffffff")
	require.NoError(t, err)
	assert.InDelta(t, 0, d, 1e-9)

	d, err = Distance("#000000", "#ffffff")
	require.NoError(t, err)
	assert.InDelta(t, 100, d, 1)

	d, err = Distance("red", "blue")
	require.NoError(t, err)
	assert.Greater(t, d, 20.0)

	_, err = Distance("not-a-color", "#ffffff")
	assert.Error(t, err)
}

func TestGenerateDistinct(t *testing.T) {
	for _, n := range []int{0, 2, 5, 8} {
		g := NewGenerator(randutil.New(int64(n)+1), 20, 10000)
		colors, err := g.Generate(n)
		require.NoError(t, err)
		require.Len(t, colors, n)

		seen := map[board.Token]bool{}
		for i, a := range colors {
			assert.False(t, seen[a], "duplicate color %s", a)
			seen[a] = true
			for _, b := range colors[i+1:] {
				d, err := Distance(string(a), string(b))
				require.NoError(t, err)
				assert.GreaterOrEqual(t, d, 20.0, "%s vs %s", a, b)
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := NewGenerator(randutil.New(99), 20, 10000).Generate(4)
	require.NoError(t, err)
	b, err := NewGenerator(randutil.New(99), 20, 10000).Generate(4)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateExhausted(t *testing.T) {
	// Nothing is 150 apart on a 0-100 scale, so the second color never fits.
	g := NewGenerator(randutil.New(1), 150, 50)
	_, err := g.Generate(2)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestGenerateNegative(t *testing.T) {
	_, err := NewGenerator(nil, 20, 10).Generate(-1)
	assert.Error(t, err)
}
