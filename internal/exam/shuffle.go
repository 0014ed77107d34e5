package exam

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

// Shuffle returns a uniformly permuted copy of in. The input is not modified.
func Shuffle[T any](r *rand.Rand, in []T) []T {
	out := slices.Clone(in)
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Shuffler is a goroutine-safe random source shared by the sampler and
// practice sessions.
type Shuffler struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewShuffler returns a deterministic shuffler for the given PCG seed.
func NewShuffler(seed1, seed2 uint64) *Shuffler {
	return &Shuffler{r: rand.New(rand.NewPCG(seed1, seed2))}
}

// NewRandomShuffler seeds a shuffler from the clock.
func NewRandomShuffler() *Shuffler {
	now := uint64(time.Now().UnixNano())
	return NewShuffler(now, rand.Uint64())
}

// Shuffled permutes a copy of in using s.
func Shuffled[T any](s *Shuffler, in []T) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Shuffle(s.r, in)
}
