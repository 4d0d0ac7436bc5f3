package pricing

import (
	"math/rand"
	"sync"
	"time"
)

// Clock supplies wall-clock time to the pricing math.
type Clock interface {
	Now() time.Time
}

// RNG supplies uniform random numbers in [0, 1).
type RNG interface {
	Float64() float64
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant. Used in tests and by the quote
// command when pricing "as of" a given time.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// lockedRand makes a *rand.Rand safe for concurrent use by HTTP handlers and
// the ticker goroutine.
type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

// NewRand returns a goroutine-safe RNG seeded with seed.
func NewRand(seed int64) RNG {
	return &lockedRand{src: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}
