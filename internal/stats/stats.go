// Package stats derives read-only performance figures from a portfolio
// snapshot. Nothing here is persisted.
package stats

import (
	"github.com/montanaflynn/stats"

	"github.com/cinemarket/market-engine/internal/model"
)

// ComputeStats summarises p's holdings.
//
// Best and worst performers are picked by ProfitLossPercent; on ties the
// holding opened first wins. RiskScore is the population standard deviation
// of the holdings' returns, a dispersion measure rather than a financial
// risk metric.
func ComputeStats(p *model.Portfolio) model.PortfolioStats {
	if p == nil {
		return model.PortfolioStats{}
	}

	out := model.PortfolioStats{TotalTransactions: len(p.Transactions)}
	holdings := p.SortedHoldings()
	if len(holdings) == 0 {
		return out
	}

	returns := make(stats.Float64Data, 0, len(holdings))
	best, worst := holdings[0], holdings[0]
	winners := 0
	for _, h := range holdings {
		returns = append(returns, h.ProfitLossPercent)
		if h.ProfitLoss.IsPositive() {
			winners++
		}
		if h.ProfitLossPercent > best.ProfitLossPercent {
			best = h
		}
		if h.ProfitLossPercent < worst.ProfitLossPercent {
			worst = h
		}
	}

	// Mean and StandardDeviationPopulation only fail on empty input.
	mean, _ := stats.Mean(returns)
	stdev, _ := stats.StandardDeviationPopulation(returns)

	out.BestPerformer = &best
	out.WorstPerformer = &worst
	out.HoldingCount = len(holdings)
	out.WinRate = 100 * float64(winners) / float64(len(holdings))
	out.AverageReturn = mean
	out.RiskScore = stdev
	return out
}
