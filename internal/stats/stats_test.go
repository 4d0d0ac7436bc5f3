package stats

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemarket/market-engine/internal/model"
	"github.com/cinemarket/market-engine/internal/portfolio"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func holding(id int64, shares int64, avg, current float64, opened time.Time) model.Holding {
	return portfolio.RevalueHolding(model.Holding{
		MovieID:      id,
		Shares:       shares,
		AveragePrice: decimal.NewFromFloat(avg),
		CurrentPrice: decimal.NewFromFloat(current),
		OpenedAt:     opened,
	})
}

func newPortfolio(holdings ...model.Holding) *model.Portfolio {
	p := &model.Portfolio{
		Cash:        decimal.NewFromInt(90000),
		InitialCash: decimal.NewFromInt(100000),
		Holdings:    make(map[int64]model.Holding),
	}
	for _, h := range holdings {
		p.Holdings[h.MovieID] = h
	}
	return p
}

func TestComputeStats_Empty(t *testing.T) {
	p := newPortfolio()
	p.Transactions = []model.Transaction{{ID: "a"}, {ID: "b"}}

	s := ComputeStats(p)
	assert.Nil(t, s.BestPerformer)
	assert.Nil(t, s.WorstPerformer)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.AverageReturn)
	assert.Zero(t, s.RiskScore)
	assert.Zero(t, s.HoldingCount)
	assert.Equal(t, 2, s.TotalTransactions)
}

func TestComputeStats_Nil(t *testing.T) {
	assert.Equal(t, model.PortfolioStats{}, ComputeStats(nil))
}

func TestComputeStats_WinnerAndLoser(t *testing.T) {
	up := holding(550, 10, 40, 50, t0)                   // +25%
	down := holding(603, 10, 60, 50, t0.Add(time.Minute)) // -16.67%
	s := ComputeStats(newPortfolio(up, down))

	require.NotNil(t, s.BestPerformer)
	require.NotNil(t, s.WorstPerformer)
	assert.Equal(t, int64(550), s.BestPerformer.MovieID)
	assert.Equal(t, int64(603), s.WorstPerformer.MovieID)
	assert.Equal(t, 50.0, s.WinRate)
	assert.InDelta(t, 4.17, s.AverageReturn, 0.01)
	assert.InDelta(t, 20.83, s.RiskScore, 0.01)
	assert.Equal(t, 2, s.HoldingCount)
}

func TestComputeStats_TiesGoToFirstOpened(t *testing.T) {
	a := holding(900, 5, 50, 50, t0.Add(time.Hour))
	b := holding(100, 5, 50, 50, t0)
	s := ComputeStats(newPortfolio(a, b))

	assert.Equal(t, int64(100), s.BestPerformer.MovieID)
	assert.Equal(t, int64(100), s.WorstPerformer.MovieID)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.RiskScore)
}

func TestComputeStats_SingleHolding(t *testing.T) {
	s := ComputeStats(newPortfolio(holding(1, 3, 10, 12, t0)))

	assert.Equal(t, 100.0, s.WinRate)
	assert.InDelta(t, 20.0, s.AverageReturn, 1e-9)
	assert.Zero(t, s.RiskScore)
	assert.False(t, math.IsNaN(s.RiskScore))
}
