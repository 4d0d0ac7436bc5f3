package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cinemarket/market-engine/internal/model"
)

var hundred = decimal.NewFromInt(100)

// RevalueHolding recomputes a holding's value and P&L from its current
// price. The cost basis is never touched.
func RevalueHolding(h model.Holding) model.Holding {
	shares := decimal.NewFromInt(h.Shares)
	cost := h.AveragePrice.Mul(shares)

	h.TotalValue = h.CurrentPrice.Mul(shares)
	h.ProfitLoss = h.TotalValue.Sub(cost)
	h.ProfitLossPercent = 0
	if cost.IsPositive() {
		h.ProfitLossPercent = h.ProfitLoss.Div(cost).Mul(hundred).InexactFloat64()
	}
	return h
}

// Recalculate revalues every holding and rebuilds the portfolio aggregates:
//
//	totalValue      = cash + Σ holding.totalValue
//	totalInvested   = Σ holding.averagePrice × shares
//	totalProfitLoss = totalValue − initialCash
func Recalculate(p *model.Portfolio, now time.Time) {
	invested := decimal.Zero
	holdingsValue := decimal.Zero

	for id, h := range p.Holdings {
		h = RevalueHolding(h)
		p.Holdings[id] = h

		invested = invested.Add(h.AveragePrice.Mul(decimal.NewFromInt(h.Shares)))
		holdingsValue = holdingsValue.Add(h.TotalValue)
	}

	p.TotalInvested = invested
	p.TotalValue = p.Cash.Add(holdingsValue)
	p.TotalProfitLoss = p.TotalValue.Sub(p.InitialCash)
	p.TotalProfitLossPercent = 0
	if p.InitialCash.IsPositive() {
		p.TotalProfitLossPercent = p.TotalProfitLoss.Div(p.InitialCash).Mul(hundred).InexactFloat64()
	}
	p.LastUpdated = now
}
