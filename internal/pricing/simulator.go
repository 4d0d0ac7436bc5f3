package pricing

import (
	"github.com/cinemarket/market-engine/internal/model"
)

// Simulator moves a MoviePrice forward one discrete step at a time.
// It is pure given its clock and RNG; callers own the schedule.
type Simulator struct {
	clock Clock
	rng   RNG
}

// NewSimulator creates a price simulator.
func NewSimulator(clock Clock, rng RNG) *Simulator {
	return &Simulator{clock: clock, rng: rng}
}

// MarketActivity scales price moves: busier during trading hours (9-17h)
// and on weekends.
func (s *Simulator) MarketActivity() float64 {
	now := s.clock.Now()
	activity := 1.0
	if h := now.Hour(); h >= 9 && h <= 17 {
		activity *= 1.2
	}
	if isWeekend(now) {
		activity *= 1.1
	}
	return activity
}

// Advance applies one random step to p.CurrentPrice. PriceChange is
// measured against the pre-step price. Other fields are left as they were.
func (s *Simulator) Advance(p model.MoviePrice) model.MoviePrice {
	prev := p.CurrentPrice
	current := prev.InexactFloat64()

	step := (s.rng.Float64() - 0.5) * p.Volatility * s.MarketActivity() * current
	next := clampPrice(toPrice(current + step))

	out := p
	out.CurrentPrice = next
	out.PriceChange = next.Sub(prev)
	out.PriceChangePercent = percentOf(out.PriceChange, prev)
	out.LastUpdated = s.clock.Now()
	return out
}
