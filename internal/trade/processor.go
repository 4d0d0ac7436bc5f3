package trade

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cinemarket/market-engine/internal/limits"
	"github.com/cinemarket/market-engine/internal/metrics"
	"github.com/cinemarket/market-engine/internal/model"
	"github.com/cinemarket/market-engine/internal/portfolio"
	"github.com/cinemarket/market-engine/internal/pricing"
)

var (
	ErrInvalidQuantity      = errors.New("trade: shares must be positive")
	ErrInvalidPrice         = errors.New("trade: price outside the trading range")
	ErrInsufficientFunds    = errors.New("trade: insufficient funds")
	ErrInsufficientShares   = errors.New("trade: insufficient shares")
	ErrNoSuchHolding        = errors.New("trade: no holding for movie")
	ErrPositionLimitReached = errors.New("trade: position limit exceeded")
)

// Code classifies a rejected trade.
type Code string

const (
	CodeInvalidQuantity    Code = "INVALID_QUANTITY"
	CodeInvalidPrice       Code = "INVALID_PRICE"
	CodeInsufficientFunds  Code = "INSUFFICIENT_FUNDS"
	CodeInsufficientShares Code = "INSUFFICIENT_SHARES"
	CodeNoSuchHolding      Code = "NO_SUCH_HOLDING"
	CodePositionLimit      Code = "POSITION_LIMIT_EXCEEDED"
)

// Result is the outcome of a buy or sell. Business-rule failures come back
// as Success=false with a Code and a message; the portfolio is untouched.
type Result struct {
	Success     bool               `json:"success"`
	Code        Code               `json:"code,omitempty"`
	Message     string             `json:"message"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
	Portfolio   *model.Portfolio   `json:"portfolio,omitempty"`

	// Err is the sentinel behind a rejection, for errors.Is checks.
	Err error `json:"-"`
}

// rejection carries a business-rule failure out of a portfolio update.
type rejection struct {
	code Code
	err  error
	msg  string
}

func (r *rejection) Error() string { return r.msg }
func (r *rejection) Unwrap() error { return r.err }

func reject(code Code, err error, format string, args ...any) *rejection {
	return &rejection{code: code, err: err, msg: fmt.Sprintf(format, args...)}
}

// BuyRequest is a validated intent to buy shares of one movie.
type BuyRequest struct {
	UserID     string
	MovieID    int64
	Title      string
	PosterPath string
	Shares     int64
	Price      decimal.Decimal
}

// SellRequest is a validated intent to sell shares of one movie.
type SellRequest struct {
	UserID  string
	MovieID int64
	Shares  int64
	Price   decimal.Decimal
}

// Processor applies buys and sells to portfolios. Each call is one atomic
// read-modify-write of the user's record under the portfolio store's lock.
type Processor struct {
	portfolios *portfolio.Store
	ids        IDGenerator
	clock      pricing.Clock
	limiter    *limits.PositionLimiter
	hub        *WSHub
	log        *zap.Logger
}

// ProcessorOption customises a Processor.
type ProcessorOption func(*Processor)

// WithLimiter enables position limits on buys.
func WithLimiter(l *limits.PositionLimiter) ProcessorOption {
	return func(p *Processor) { p.limiter = l }
}

// WithHub broadcasts executed trades to WebSocket clients.
func WithHub(h *WSHub) ProcessorOption {
	return func(p *Processor) { p.hub = h }
}

// NewProcessor creates a trade processor.
func NewProcessor(ps *portfolio.Store, ids IDGenerator, clock pricing.Clock, log *zap.Logger, opts ...ProcessorOption) *Processor {
	p := &Processor{
		portfolios: ps,
		ids:        ids,
		clock:      clock,
		log:        log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Buy debits cash and adds shares at req.Price. An existing holding's cost
// basis becomes the share-weighted average of old and new purchases.
//
// Business-rule failures return a failed Result and a nil error. A non-nil
// error means the trade could not be persisted and did not happen.
func (p *Processor) Buy(ctx context.Context, req BuyRequest) (*Result, error) {
	if req.Shares <= 0 {
		return p.rejected(model.TransactionBuy, reject(CodeInvalidQuantity, ErrInvalidQuantity,
			"shares must be a positive whole number, got %d", req.Shares)), nil
	}
	if rej := checkPrice(req.Price); rej != nil {
		return p.rejected(model.TransactionBuy, rej), nil
	}

	start := time.Now()
	shares := decimal.NewFromInt(req.Shares)
	cost := req.Price.Mul(shares)
	var tx model.Transaction

	updated, err := p.portfolios.Update(ctx, req.UserID, func(pf *model.Portfolio) error {
		if pf.Cash.LessThan(cost) {
			return reject(CodeInsufficientFunds, ErrInsufficientFunds,
				"insufficient funds: buying %d shares costs $%s but only $%s is available (short $%s)",
				req.Shares, cost.StringFixed(2), pf.Cash.StringFixed(2), cost.Sub(pf.Cash).StringFixed(2))
		}

		now := p.clock.Now()
		h, ok := pf.Holdings[req.MovieID]
		if ok {
			oldShares := decimal.NewFromInt(h.Shares)
			totalCost := h.AveragePrice.Mul(oldShares).Add(cost)
			h.Shares += req.Shares
			h.AveragePrice = totalCost.Div(decimal.NewFromInt(h.Shares))
			if req.Title != "" {
				h.Title = req.Title
			}
			if req.PosterPath != "" {
				h.PosterPath = req.PosterPath
			}
		} else {
			h = model.Holding{
				MovieID:      req.MovieID,
				Title:        req.Title,
				PosterPath:   req.PosterPath,
				Shares:       req.Shares,
				AveragePrice: req.Price,
				OpenedAt:     now,
			}
		}
		h.CurrentPrice = req.Price
		pf.Holdings[req.MovieID] = h
		pf.Cash = pf.Cash.Sub(cost)

		if p.limiter.Enabled() {
			portfolio.Recalculate(pf, now)
			h = pf.Holdings[req.MovieID]
			if err := p.limiter.CheckLimit(h.Shares, h.TotalValue, pf.TotalValue); err != nil {
				return reject(CodePositionLimit, ErrPositionLimitReached, "%s", err.Error())
			}
		}

		tx = model.Transaction{
			ID:          p.ids.NewID(),
			MovieID:     req.MovieID,
			MovieTitle:  h.Title,
			Type:        model.TransactionBuy,
			Shares:      req.Shares,
			Price:       req.Price,
			TotalAmount: cost,
			Timestamp:   now,
		}
		pf.Transactions = append(pf.Transactions, tx)
		return nil
	})
	if err != nil {
		var rej *rejection
		if errors.As(err, &rej) {
			return p.rejected(model.TransactionBuy, rej), nil
		}
		return nil, fmt.Errorf("buy %d shares of movie %d: %w", req.Shares, req.MovieID, err)
	}

	msg := fmt.Sprintf("Bought %d shares of %s at $%s", req.Shares, displayTitle(tx), req.Price.StringFixed(2))
	return p.executed(tx, updated, msg, start), nil
}

// Sell credits cash and removes shares at req.Price. The remaining shares
// keep their cost basis; a holding sold down to zero is removed.
func (p *Processor) Sell(ctx context.Context, req SellRequest) (*Result, error) {
	if req.Shares <= 0 {
		return p.rejected(model.TransactionSell, reject(CodeInvalidQuantity, ErrInvalidQuantity,
			"shares must be a positive whole number, got %d", req.Shares)), nil
	}
	if rej := checkPrice(req.Price); rej != nil {
		return p.rejected(model.TransactionSell, rej), nil
	}

	start := time.Now()
	proceeds := req.Price.Mul(decimal.NewFromInt(req.Shares))
	var tx model.Transaction

	updated, err := p.portfolios.Update(ctx, req.UserID, func(pf *model.Portfolio) error {
		h, ok := pf.Holdings[req.MovieID]
		if !ok {
			return reject(CodeNoSuchHolding, ErrNoSuchHolding,
				"you do not own any shares of movie %d", req.MovieID)
		}
		if h.Shares < req.Shares {
			return reject(CodeInsufficientShares, ErrInsufficientShares,
				"insufficient shares: you own %d shares of %s but tried to sell %d",
				h.Shares, titleOrID(h.Title, h.MovieID), req.Shares)
		}

		now := p.clock.Now()
		pf.Cash = pf.Cash.Add(proceeds)

		h.Shares -= req.Shares
		if h.Shares == 0 {
			delete(pf.Holdings, req.MovieID)
		} else {
			h.CurrentPrice = req.Price
			pf.Holdings[req.MovieID] = h
		}

		tx = model.Transaction{
			ID:          p.ids.NewID(),
			MovieID:     req.MovieID,
			MovieTitle:  h.Title,
			Type:        model.TransactionSell,
			Shares:      req.Shares,
			Price:       req.Price,
			TotalAmount: proceeds,
			Timestamp:   now,
		}
		pf.Transactions = append(pf.Transactions, tx)
		return nil
	})
	if err != nil {
		var rej *rejection
		if errors.As(err, &rej) {
			return p.rejected(model.TransactionSell, rej), nil
		}
		return nil, fmt.Errorf("sell %d shares of movie %d: %w", req.Shares, req.MovieID, err)
	}

	msg := fmt.Sprintf("Sold %d shares of %s at $%s", req.Shares, displayTitle(tx), req.Price.StringFixed(2))
	return p.executed(tx, updated, msg, start), nil
}

// checkPrice rejects prices the engine could never quote.
func checkPrice(price decimal.Decimal) *rejection {
	if price.LessThan(pricing.MinPrice) || price.GreaterThan(pricing.MaxPrice) {
		return reject(CodeInvalidPrice, ErrInvalidPrice,
			"price must be between $%s and $%s, got $%s",
			pricing.MinPrice.StringFixed(2), pricing.MaxPrice.StringFixed(2), price.String())
	}
	return nil
}

func (p *Processor) rejected(typ model.TransactionType, rej *rejection) *Result {
	metrics.TradeRejections.WithLabelValues(string(rej.code)).Inc()
	p.log.Info("trade rejected",
		zap.String("type", string(typ)),
		zap.String("code", string(rej.code)),
		zap.String("reason", rej.msg),
	)
	return &Result{
		Success: false,
		Code:    rej.code,
		Message: rej.msg,
		Err:     rej.err,
	}
}

func (p *Processor) executed(tx model.Transaction, pf *model.Portfolio, msg string, start time.Time) *Result {
	typ := string(tx.Type)
	metrics.TradesTotal.WithLabelValues(typ).Inc()
	metrics.TradeLatency.WithLabelValues(typ).Observe(time.Since(start).Seconds())
	metrics.SharesTraded.WithLabelValues(strconv.FormatInt(tx.MovieID, 10), typ).Add(float64(tx.Shares))

	p.log.Info("trade executed",
		zap.String("trade_id", tx.ID),
		zap.String("user", pf.UserID),
		zap.String("type", typ),
		zap.Int64("movie_id", tx.MovieID),
		zap.Int64("shares", tx.Shares),
		zap.String("price", tx.Price.String()),
		zap.String("cash", pf.Cash.String()),
	)

	if p.hub != nil {
		p.hub.BroadcastTrade(tx)
	}

	return &Result{
		Success:     true,
		Message:     msg,
		Transaction: &tx,
		Portfolio:   pf,
	}
}

func displayTitle(tx model.Transaction) string {
	return titleOrID(tx.MovieTitle, tx.MovieID)
}

func titleOrID(title string, movieID int64) string {
	if title != "" {
		return title
	}
	return fmt.Sprintf("movie %d", movieID)
}
