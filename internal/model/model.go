// Package model defines the core domain types shared across the market engine.
// All monetary values use shopspring/decimal, never float64.
// Ratios and percentages stay float64.
package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MovieAttributes is the immutable metadata snapshot supplied by the movie
// catalog. Budget and Revenue are zero when unknown.
type MovieAttributes struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	PosterPath  string    `json:"poster_path,omitempty"`
	Popularity  float64   `json:"popularity"`
	VoteAverage float64   `json:"vote_average"` // 0-10
	VoteCount   int64     `json:"vote_count"`
	GenreID     int       `json:"genre_id"` // primary genre, 0 when unknown
	ReleaseDate time.Time `json:"release_date"`
	Budget      int64     `json:"budget"`
	Revenue     int64     `json:"revenue"`
}

// MoviePrice is a priced snapshot of one movie. BasePrice depends only on
// the movie's attributes; CurrentPrice is the noisy value traded against.
type MoviePrice struct {
	MovieID            int64           `json:"movie_id"`
	BasePrice          decimal.Decimal `json:"base_price"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	PriceChange        decimal.Decimal `json:"price_change"`
	PriceChangePercent float64         `json:"price_change_percent"`
	Volume             int64           `json:"volume"`
	MarketCap          decimal.Decimal `json:"market_cap"`
	Volatility         float64         `json:"volatility"`
	LastUpdated        time.Time       `json:"last_updated"`
}

// Holding is an open position in one movie. It never exists with zero shares.
type Holding struct {
	MovieID           int64           `json:"movie_id"`
	Title             string          `json:"title"`
	PosterPath        string          `json:"poster_path,omitempty"`
	Shares            int64           `json:"shares"`
	AveragePrice      decimal.Decimal `json:"average_price"` // cost basis per share
	CurrentPrice      decimal.Decimal `json:"current_price"`
	TotalValue        decimal.Decimal `json:"total_value"`
	ProfitLoss        decimal.Decimal `json:"profit_loss"`
	ProfitLossPercent float64         `json:"profit_loss_percent"`
	OpenedAt          time.Time       `json:"opened_at"`
}

// TransactionType is the direction of a ledger entry.
type TransactionType string

const (
	TransactionBuy  TransactionType = "buy"
	TransactionSell TransactionType = "sell"
)

// Transaction is an immutable record of a trade execution.
// Once created, these are never modified or deleted.
type Transaction struct {
	ID          string          `json:"id"`
	MovieID     int64           `json:"movie_id"`
	MovieTitle  string          `json:"movie_title"`
	Type        TransactionType `json:"type"`
	Shares      int64           `json:"shares"`
	Price       decimal.Decimal `json:"price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Portfolio is the durable per-user trading ledger.
type Portfolio struct {
	UserID                 string            `json:"user_id"`
	Cash                   decimal.Decimal   `json:"cash"`
	InitialCash            decimal.Decimal   `json:"initial_cash"`
	TotalValue             decimal.Decimal   `json:"total_value"`
	TotalInvested          decimal.Decimal   `json:"total_invested"`
	TotalProfitLoss        decimal.Decimal   `json:"total_profit_loss"`
	TotalProfitLossPercent float64           `json:"total_profit_loss_percent"`
	Holdings               map[int64]Holding `json:"holdings"`
	Transactions           []Transaction     `json:"transactions"`
	CreatedAt              time.Time         `json:"created_at"`
	LastUpdated            time.Time         `json:"last_updated"`
}

// Clone returns a deep copy so callers can mutate the snapshot freely.
func (p *Portfolio) Clone() *Portfolio {
	c := *p
	c.Holdings = make(map[int64]Holding, len(p.Holdings))
	for id, h := range p.Holdings {
		c.Holdings[id] = h
	}
	c.Transactions = make([]Transaction, len(p.Transactions))
	copy(c.Transactions, p.Transactions)
	return &c
}

// SortedHoldings returns holdings in the order they were opened, with the
// movie ID breaking ties.
func (p *Portfolio) SortedHoldings() []Holding {
	out := make([]Holding, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.Before(out[j].OpenedAt)
		}
		return out[i].MovieID < out[j].MovieID
	})
	return out
}

// PortfolioStats is derived on demand from a Portfolio and never persisted.
type PortfolioStats struct {
	BestPerformer     *Holding `json:"best_performer"`
	WorstPerformer    *Holding `json:"worst_performer"`
	WinRate           float64  `json:"win_rate"`
	AverageReturn     float64  `json:"average_return"`
	RiskScore         float64  `json:"risk_score"`
	HoldingCount      int      `json:"holding_count"`
	TotalTransactions int      `json:"total_transactions"`
}
