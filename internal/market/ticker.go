package market

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cinemarket/market-engine/internal/metrics"
	"github.com/cinemarket/market-engine/internal/model"
	"github.com/cinemarket/market-engine/internal/pricing"
)

// DefaultTickInterval is how often the ticker advances the board.
const DefaultTickInterval = 5 * time.Second

// Broadcaster receives every price the ticker publishes.
type Broadcaster interface {
	BroadcastPrice(p model.MoviePrice)
}

// Ticker advances every price on a Board one simulator step per interval.
type Ticker struct {
	board    *Board
	sim      *pricing.Simulator
	interval time.Duration
	out      Broadcaster
	log      *zap.Logger
}

// NewTicker creates a ticker. out may be nil.
func NewTicker(board *Board, sim *pricing.Simulator, interval time.Duration, out Broadcaster, log *zap.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Ticker{board: board, sim: sim, interval: interval, out: out, log: log}
}

// Step advances every tracked price once and returns the new prices,
// ordered by movie ID.
func (t *Ticker) Step() []model.MoviePrice {
	current := t.board.Snapshot()
	next := make([]model.MoviePrice, 0, len(current))
	for _, p := range current {
		next = append(next, t.sim.Advance(p))
	}

	applied := t.board.apply(current, next)
	metrics.TickerTicks.Inc()

	if t.out != nil {
		for _, p := range applied {
			t.out.BroadcastPrice(p)
		}
	}
	return applied
}

// Run calls Step every interval until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) {
	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	t.log.Info("price ticker started", zap.Duration("interval", t.interval))
	for {
		select {
		case <-ctx.Done():
			t.log.Info("price ticker stopped")
			return
		case <-tk.C:
			moved := t.Step()
			t.log.Debug("prices advanced", zap.Int("movies", len(moved)))
		}
	}
}
