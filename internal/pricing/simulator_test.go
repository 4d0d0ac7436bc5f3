package pricing

import (
	"math"
	"testing"
	"time"
)

func TestMarketActivity(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want float64
	}{
		{"weekday trading hours", time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC), 1.2},
		{"weekday 17h still trading", time.Date(2024, 3, 6, 17, 30, 0, 0, time.UTC), 1.2},
		{"weekday evening", time.Date(2024, 3, 6, 20, 0, 0, 0, time.UTC), 1.0},
		{"weekend trading hours", time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC), 1.32},
		{"weekend night", time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC), 1.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSimulator(FixedClock{T: tt.at}, constRNG(0.5))
			if got := s.MarketActivity(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestAdvance_Deterministic(t *testing.T) {
	evening := time.Date(2024, 3, 6, 20, 0, 0, 0, time.UTC)
	s := NewSimulator(FixedClock{T: evening}, constRNG(0.75))

	in := Fallback(7, wednesdayNoon)
	in.CurrentPrice = d(100)
	in.Volatility = 0.2

	out := s.Advance(in)

	// step = 0.25 * 0.2 * 1.0 * 100
	if !out.CurrentPrice.Equal(d(105)) {
		t.Errorf("expected 105, got %s", out.CurrentPrice)
	}
	if !out.PriceChange.Equal(d(5)) {
		t.Errorf("expected change 5 against the pre-step price, got %s", out.PriceChange)
	}
	if math.Abs(out.PriceChangePercent-5) > 1e-9 {
		t.Errorf("expected 5%%, got %f", out.PriceChangePercent)
	}
	if !out.LastUpdated.Equal(evening) {
		t.Errorf("expected last updated to be stamped, got %s", out.LastUpdated)
	}
	if !out.BasePrice.Equal(in.BasePrice) || out.Volume != in.Volume || !out.MarketCap.Equal(in.MarketCap) {
		t.Error("advance should only move the current price and its change")
	}
}

func TestAdvance_ClampsAtFloor(t *testing.T) {
	s := NewSimulator(FixedClock{T: wednesdayNoon}, constRNG(0))
	in := Fallback(1, wednesdayNoon)
	in.CurrentPrice = d(1)
	in.Volatility = 1.5

	out := s.Advance(in)
	if !out.CurrentPrice.Equal(MinPrice) {
		t.Errorf("expected floor %s, got %s", MinPrice, out.CurrentPrice)
	}
	if !out.PriceChange.IsZero() {
		t.Errorf("expected zero change at the floor, got %s", out.PriceChange)
	}
}

func TestAdvance_ClampsAtCap(t *testing.T) {
	s := NewSimulator(FixedClock{T: wednesdayNoon}, constRNG(0.999999))
	in := Fallback(1, wednesdayNoon)
	in.CurrentPrice = d(990)
	in.Volatility = 1.5

	if out := s.Advance(in); !out.CurrentPrice.Equal(MaxPrice) {
		t.Errorf("expected cap %s, got %s", MaxPrice, out.CurrentPrice)
	}
}

func TestAdvance_RepeatedStepsStayInBounds(t *testing.T) {
	s := NewSimulator(FixedClock{T: time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)}, NewRand(99))

	for _, start := range []float64{1, 50, 999} {
		p := Fallback(1, wednesdayNoon)
		p.CurrentPrice = d(start)
		p.Volatility = 1.0
		for i := 0; i < 5000; i++ {
			p = s.Advance(p)
			if p.CurrentPrice.LessThan(MinPrice) || p.CurrentPrice.GreaterThan(MaxPrice) {
				t.Fatalf("start %v step %d: price %s out of bounds", start, i, p.CurrentPrice)
			}
			if p.CurrentPrice.Exponent() < -2 {
				t.Fatalf("start %v step %d: price %s not rounded to cents", start, i, p.CurrentPrice)
			}
		}
	}
}
