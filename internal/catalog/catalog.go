// Package catalog is the read-only boundary to the external movie catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cinemarket/market-engine/internal/model"
)

// ErrNotFound is returned when the catalog has no metadata for a movie.
var ErrNotFound = errors.New("catalog: movie not found")

// Catalog looks up movie metadata by ID.
type Catalog interface {
	GetMovieAttributes(ctx context.Context, movieID int64) (model.MovieAttributes, error)
}

// MemoryCatalog serves attributes from a map. Used for testing and for
// running the server without a TMDB key.
type MemoryCatalog struct {
	mu     sync.RWMutex
	movies map[int64]model.MovieAttributes
}

// NewMemoryCatalog creates a catalog seeded with movies.
func NewMemoryCatalog(movies ...model.MovieAttributes) *MemoryCatalog {
	c := &MemoryCatalog{movies: make(map[int64]model.MovieAttributes, len(movies))}
	for _, m := range movies {
		c.movies[m.ID] = m
	}
	return c
}

// Put adds or replaces a movie.
func (c *MemoryCatalog) Put(m model.MovieAttributes) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.movies[m.ID] = m
}

func (c *MemoryCatalog) GetMovieAttributes(_ context.Context, movieID int64) (model.MovieAttributes, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.movies[movieID]
	if !ok {
		return model.MovieAttributes{}, fmt.Errorf("%w: %d", ErrNotFound, movieID)
	}
	return m, nil
}
