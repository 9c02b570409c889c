// Package randutil centralises how the game derives its random sources.
package randutil

import rand "math/rand/v2"

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// Both PCG state words are derived from the one seed so that a board dealt
// from a recorded seed can be reproduced exactly.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Shuffle permutes s in place using Fisher-Yates, walking from the last
// element to the first and swapping each position with a uniformly chosen
// index from the not-yet-placed prefix. A nil rng uses the global source.
// Empty and single-element slices are left untouched.
func Shuffle[T any](rng *rand.Rand, s []T) {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	for i := len(s) - 1; i > 0; i-- {
		j := intN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
