// Package limits implements optional position limits on movie holdings.
//
// Synthetic movie prices are thinly anchored, so a single title can come to
// dominate a portfolio after a few buys. The limiter caps both the absolute
// share count held in one movie and that holding's share of the portfolio's
// total value.
package limits

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrShareLimitExceeded is returned when a buy would push a single
	// movie's share count beyond the per-movie maximum.
	ErrShareLimitExceeded = errors.New("limits: per-movie share limit exceeded")

	// ErrConcentrationLimitExceeded is returned when a buy would push one
	// holding beyond the allowed percentage of total portfolio value.
	ErrConcentrationLimitExceeded = errors.New("limits: position concentration limit exceeded")
)

// PositionLimiter enforces position limits on buys. A zero limit disables
// that check.
type PositionLimiter struct {
	// MaxSharesPerMovie is the maximum share count held in any one movie.
	MaxSharesPerMovie int64

	// MaxPositionPercent is the maximum value of one holding as a
	// percentage (0-100] of the portfolio's total value.
	MaxPositionPercent decimal.Decimal
}

// NewPositionLimiter creates a limiter. Negative limits are treated as zero.
func NewPositionLimiter(maxShares int64, maxPercent decimal.Decimal) *PositionLimiter {
	if maxShares < 0 {
		maxShares = 0
	}
	if maxPercent.IsNegative() {
		maxPercent = decimal.Zero
	}
	return &PositionLimiter{
		MaxSharesPerMovie:  maxShares,
		MaxPositionPercent: maxPercent,
	}
}

// Enabled reports whether any limit is active.
func (l *PositionLimiter) Enabled() bool {
	return l != nil && (l.MaxSharesPerMovie > 0 || l.MaxPositionPercent.IsPositive())
}

// CheckLimit validates a holding as it would stand after a buy.
//
// Parameters:
//   - shares: share count of the holding after the buy
//   - positionValue: market value of the holding after the buy
//   - portfolioValue: total portfolio value (cash + holdings) after the buy
//
// Returns nil if the holding is within limits, or an error describing the
// violation.
func (l *PositionLimiter) CheckLimit(shares int64, positionValue, portfolioValue decimal.Decimal) error {
	if !l.Enabled() {
		return nil
	}

	// 1. Per-movie share cap.
	if l.MaxSharesPerMovie > 0 && shares > l.MaxSharesPerMovie {
		return fmt.Errorf("%w: %d shares exceeds maximum of %d",
			ErrShareLimitExceeded, shares, l.MaxSharesPerMovie)
	}

	// 2. Concentration: holding value as a share of the whole portfolio.
	if l.MaxPositionPercent.IsPositive() && portfolioValue.IsPositive() {
		pct := positionValue.Div(portfolioValue).Mul(decimal.NewFromInt(100))
		if pct.GreaterThan(l.MaxPositionPercent) {
			return fmt.Errorf("%w: position would be %s%% of portfolio, maximum is %s%%",
				ErrConcentrationLimitExceeded, pct.StringFixed(2), l.MaxPositionPercent.String())
		}
	}

	return nil
}
