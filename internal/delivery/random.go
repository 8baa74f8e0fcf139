package delivery

import (
	"math/rand"
	"time"
)

// RandomSource supplies the sampled traffic levels and utilizations.
// Float64 returns a value in [0, 1).
type RandomSource interface {
	Float64() float64
}

// RandomFactory creates the source used for one optimization run
type RandomFactory func() RandomSource

// NewSeededRandom returns a deterministic source for seed
func NewSeededRandom(seed int64) RandomSource {
	return rand.New(rand.NewSource(seed))
}

func defaultRandomFactory() RandomSource {
	return NewSeededRandom(time.Now().UnixNano())
}
