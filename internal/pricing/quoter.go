package pricing

import (
	"context"

	"go.uber.org/zap"

	"github.com/cinemarket/market-engine/internal/catalog"
	"github.com/cinemarket/market-engine/internal/metrics"
	"github.com/cinemarket/market-engine/internal/model"
)

// Quoter prices movies by ID, reading attributes from the catalog.
type Quoter struct {
	catalog catalog.Catalog
	engine  *Engine
	clock   Clock
	log     *zap.Logger
}

// NewQuoter creates a quoter over a catalog and engine.
func NewQuoter(cat catalog.Catalog, engine *Engine, clock Clock, log *zap.Logger) *Quoter {
	return &Quoter{catalog: cat, engine: engine, clock: clock, log: log}
}

// Fetch looks up movieID and prices it, returning the catalog error as is.
func (q *Quoter) Fetch(ctx context.Context, movieID int64) (model.MoviePrice, model.MovieAttributes, error) {
	attrs, err := q.catalog.GetMovieAttributes(ctx, movieID)
	if err != nil {
		return model.MoviePrice{}, model.MovieAttributes{}, err
	}
	return q.engine.DerivePrice(attrs), attrs, nil
}

// FetchPrice is Fetch without the attributes. It satisfies
// portfolio.QuoteFunc.
func (q *Quoter) FetchPrice(ctx context.Context, movieID int64) (model.MoviePrice, error) {
	price, _, err := q.Fetch(ctx, movieID)
	return price, err
}

// Quote returns a fresh price for movieID. It never fails: when the catalog
// lookup fails the fallback price is returned instead.
func (q *Quoter) Quote(ctx context.Context, movieID int64) model.MoviePrice {
	price, _ := q.QuoteWithAttributes(ctx, movieID)
	return price
}

// QuoteWithAttributes is Quote plus the attributes the price came from.
// On fallback the attributes carry only the ID.
func (q *Quoter) QuoteWithAttributes(ctx context.Context, movieID int64) (model.MoviePrice, model.MovieAttributes) {
	price, attrs, _ := q.Lookup(ctx, movieID)
	return price, attrs
}

// Lookup is QuoteWithAttributes that also reports whether the movie was
// found in the catalog. found is false when the fallback price was used.
func (q *Quoter) Lookup(ctx context.Context, movieID int64) (price model.MoviePrice, attrs model.MovieAttributes, found bool) {
	price, attrs, err := q.Fetch(ctx, movieID)
	if err != nil {
		metrics.QuoteFallbacks.Inc()
		q.log.Warn("movie metadata unavailable, using fallback price",
			zap.Int64("movie_id", movieID),
			zap.Error(err),
		)
		return Fallback(movieID, q.clock.Now()), model.MovieAttributes{ID: movieID}, false
	}
	return price, attrs, true
}
