package ponavail

import (
	"golang.org/x/exp/rand"
)

// RandSource is the source of every random choice the generator makes.
// Float64 returns a uniform draw from [0,1).  *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// NewRandSource returns a PCG generator seeded with seed.  Two sources
// created with the same seed produce the same stream.
func NewRandSource(seed int64) RandSource {
	return rand.New(rand.NewSource(uint64(seed)))
}

// bernoulli draws once from src and returns true with probability p
func bernoulli(src RandSource, p float64) bool {
	return src.Float64() < p
}
