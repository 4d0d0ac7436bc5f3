// Package market keeps the live price board and drives the simulator over it.
package market

import (
	"sort"
	"sync"

	"github.com/cinemarket/market-engine/internal/metrics"
	"github.com/cinemarket/market-engine/internal/model"
)

// Board is the registry of movies whose prices are being simulated.
// Movies join through Track: the startup watchlist, and catalogued movies
// on their first quote.
type Board struct {
	mu     sync.RWMutex
	prices map[int64]model.MoviePrice
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{prices: make(map[int64]model.MoviePrice)}
}

// Track adds p to the board, replacing any price already held for the movie.
func (b *Board) Track(p model.MoviePrice) {
	b.mu.Lock()
	b.prices[p.MovieID] = p
	n := len(b.prices)
	b.mu.Unlock()
	metrics.TrackedMovies.Set(float64(n))
}

// Get returns the board price for movieID.
func (b *Board) Get(movieID int64) (model.MoviePrice, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prices[movieID]
	return p, ok
}

// Remove stops tracking movieID.
func (b *Board) Remove(movieID int64) {
	b.mu.Lock()
	delete(b.prices, movieID)
	n := len(b.prices)
	b.mu.Unlock()
	metrics.TrackedMovies.Set(float64(n))
}

// Len returns the number of tracked movies.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.prices)
}

// Snapshot returns every tracked price ordered by movie ID.
func (b *Board) Snapshot() []model.MoviePrice {
	b.mu.RLock()
	out := make([]model.MoviePrice, 0, len(b.prices))
	for _, p := range b.prices {
		out = append(out, p)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].MovieID < out[j].MovieID })
	return out
}

// apply replaces the stored price for each movie with its advanced price.
// base[i] is the price updates[i] was advanced from. A movie removed or
// re-tracked while the step was in flight keeps what the board holds now.
func (b *Board) apply(base, updates []model.MoviePrice) []model.MoviePrice {
	b.mu.Lock()
	defer b.mu.Unlock()

	applied := make([]model.MoviePrice, 0, len(updates))
	for i, p := range updates {
		stored, ok := b.prices[p.MovieID]
		if !ok || !samePrice(stored, base[i]) {
			continue
		}
		b.prices[p.MovieID] = p
		applied = append(applied, p)
	}
	return applied
}

func samePrice(a, b model.MoviePrice) bool {
	return a.LastUpdated.Equal(b.LastUpdated) && a.CurrentPrice.Equal(b.CurrentPrice)
}
