// Package pricing derives synthetic share prices for movies from catalog
// metadata and moves them over time.
//
// The base price is a weighted scoring heuristic over normalised movie
// attributes, not a market-clearing price or a financial model. The current
// price adds a bounded perturbation driven by an injected clock and RNG, so
// every computation here is reproducible in tests.
//
// Internal math uses float64; results are rounded to cents and converted to
// decimal at the boundary.
package pricing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cinemarket/market-engine/internal/model"
)

const (
	// BasePrice is the price of a movie whose weighted score is exactly 1.
	BasePrice = 50.0

	// VolatilityFactor is the volatility floor every movie starts from.
	VolatilityFactor = 0.1

	// MarketCapMultiplier is the notional shares-outstanding constant.
	MarketCapMultiplier = 1000

	// RecencyWindowDays is the release age at which the recency factor
	// bottoms out.
	RecencyWindowDays = 365.0

	// maxMarketMove bounds the per-derivation perturbation of the base price.
	maxMarketMove = 0.05

	priceScale int32 = 2
)

var (
	// MinPrice is the lowest price any movie may trade at.
	MinPrice = decimal.NewFromInt(1)

	// MaxPrice is the highest price any movie may trade at.
	MaxPrice = decimal.NewFromInt(1000)
)

// Factors are the normalised inputs to the price. Recomputed on every
// derivation and never persisted.
type Factors struct {
	Popularity float64 `json:"popularity"`
	Rating     float64 `json:"rating"`
	Recency    float64 `json:"recency"`
	Budget     float64 `json:"budget"`
	Revenue    float64 `json:"revenue"`
	VoteCount  float64 `json:"vote_count"`
	Genre      float64 `json:"genre"`
	Seasonal   float64 `json:"seasonal"`
	Trend      float64 `json:"trend"`
}

// Engine turns MovieAttributes into MoviePrice snapshots.
// It holds no market state; only the clock and RNG are injected.
type Engine struct {
	clock Clock
	rng   RNG
}

// NewEngine creates a price engine reading time from clock and noise from rng.
func NewEngine(clock Clock, rng RNG) *Engine {
	return &Engine{clock: clock, rng: rng}
}

// ComputeFactors normalises attrs as of now.
func ComputeFactors(attrs model.MovieAttributes, now time.Time) Factors {
	f := Factors{
		Popularity: math.Min(1, math.Max(0, attrs.Popularity)/1000),
		Rating:     clamp(attrs.VoteAverage/10, 0, 1),
		Budget:     math.Min(1, math.Max(0, float64(attrs.Budget))/200_000_000),
		Revenue:    math.Min(1, math.Max(0, float64(attrs.Revenue))/1_000_000_000),
		VoteCount:  math.Min(1, math.Max(0, float64(attrs.VoteCount))/10_000),
		Genre:      genreMultiplier(attrs.GenreID),
		Seasonal:   seasonalMultiplier(attrs.GenreID, int(now.Month())),
	}

	days, known := daysSinceRelease(attrs.ReleaseDate, now)
	if known {
		f.Recency = math.Max(0.1, 1-days/RecencyWindowDays)
	} else {
		f.Recency = 0.1
	}

	f.Trend = clamp(0.8+0.2*f.Popularity+0.1*f.Rating+recencyBonus(days, known), 0.8, 1.2)
	return f
}

// Score is the weighted sum behind the base price. The weights sum to 1.
func (f Factors) Score() float64 {
	return 0.20*f.Popularity +
		0.20*f.Rating +
		0.15*f.Budget +
		0.15*f.Revenue +
		0.10*f.VoteCount +
		0.10*f.Genre +
		0.05*f.Seasonal +
		0.05*f.Trend
}

// Volatility grows with popularity and shrinks with rating.
func (f Factors) Volatility() float64 {
	return VolatilityFactor + f.Popularity*0.1 + (1-f.Rating)*0.05
}

// MarketVolatility returns a perturbation in [-0.05, 0.05]: a sentiment term
// from the factors and the clock plus uniform noise scaled by volatility.
func (e *Engine) MarketVolatility(f Factors, volatility float64) float64 {
	now := e.clock.Now()

	sentiment := 0.0
	if f.Rating > 0.7 {
		sentiment += 0.02
	}
	if f.Popularity > 0.5 {
		sentiment += 0.01
	}
	if isWeekend(now) {
		sentiment += 0.01
	}
	if h := now.Hour(); h >= 18 && h <= 23 {
		sentiment += 0.005
	}

	noise := (e.rng.Float64() - 0.5) * volatility * 0.2
	return clamp(sentiment+noise, -maxMarketMove, maxMarketMove)
}

// DerivePrice prices a movie from its attributes.
func (e *Engine) DerivePrice(attrs model.MovieAttributes) model.MoviePrice {
	now := e.clock.Now()
	f := ComputeFactors(attrs, now)

	base := clampPrice(toPrice(BasePrice * f.Score()))
	volatility := f.Volatility()

	move := e.MarketVolatility(f, volatility)
	current := clampPrice(toPrice(base.InexactFloat64() * (1 + move)))

	volume := int64(math.Round(1000 + f.Popularity*5000 + f.Rating*2000))

	return newMoviePrice(attrs.ID, base, current, volume, volatility, now)
}

// Fallback is the price served when a movie's metadata cannot be fetched.
func Fallback(movieID int64, now time.Time) model.MoviePrice {
	base := decimal.NewFromFloat(BasePrice)
	return newMoviePrice(movieID, base, base, 1000, VolatilityFactor, now)
}

func newMoviePrice(movieID int64, base, current decimal.Decimal, volume int64, volatility float64, now time.Time) model.MoviePrice {
	change := current.Sub(base)
	return model.MoviePrice{
		MovieID:            movieID,
		BasePrice:          base,
		CurrentPrice:       current,
		PriceChange:        change,
		PriceChangePercent: percentOf(change, base),
		Volume:             volume,
		MarketCap:          current.Mul(decimal.NewFromInt(volume)).Mul(decimal.NewFromInt(MarketCapMultiplier)),
		Volatility:         volatility,
		LastUpdated:        now,
	}
}

// daysSinceRelease reports the release age in days. Unreleased movies count
// as released today; a zero release date is unknown.
func daysSinceRelease(release, now time.Time) (float64, bool) {
	if release.IsZero() {
		return 0, false
	}
	days := now.Sub(release).Hours() / 24
	if days < 0 {
		days = 0
	}
	return days, true
}

func recencyBonus(days float64, known bool) float64 {
	switch {
	case !known:
		return 0
	case days < 30:
		return 0.2
	case days < 90:
		return 0.1
	case days < 365:
		return 0.05
	default:
		return 0
	}
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func toPrice(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(priceScale)
}

// ClampPrice bounds p to [MinPrice, MaxPrice].
func ClampPrice(p decimal.Decimal) decimal.Decimal {
	return clampPrice(p)
}

func clampPrice(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(MinPrice) {
		return MinPrice
	}
	if p.GreaterThan(MaxPrice) {
		return MaxPrice
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func percentOf(change, base decimal.Decimal) float64 {
	if base.IsZero() {
		return 0
	}
	return change.Div(base).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
