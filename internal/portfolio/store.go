// Package portfolio owns the durable per-user Portfolio record: creation,
// recovery, price refresh, and serialised read-modify-write updates.
package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cinemarket/market-engine/internal/metrics"
	"github.com/cinemarket/market-engine/internal/model"
	"github.com/cinemarket/market-engine/internal/pricing"
	"github.com/cinemarket/market-engine/internal/store"
)

// DefaultUserID keys the portfolio of single-user deployments.
const DefaultUserID = "default"

// DefaultInitialCash is the cash every new portfolio starts with.
var DefaultInitialCash = decimal.NewFromInt(100000)

// ErrPersist wraps failures to write the portfolio record.
var ErrPersist = errors.New("portfolio: persist failed")

// QuoteFunc fetches a fresh price for one movie.
type QuoteFunc func(ctx context.Context, movieID int64) (model.MoviePrice, error)

// Store is the single owner of each user's Portfolio record. Every
// mutating call runs under that user's lock from the registry.
type Store struct {
	kv          store.KV
	clock       pricing.Clock
	locks       *LockRegistry
	initialCash decimal.Decimal
	log         *zap.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithInitialCash overrides the starting cash of new portfolios.
func WithInitialCash(cash decimal.Decimal) Option {
	return func(s *Store) {
		if cash.IsPositive() {
			s.initialCash = cash
		}
	}
}

// WithLockRegistry shares a lock registry between stores over the same KV.
func WithLockRegistry(r *LockRegistry) Option {
	return func(s *Store) { s.locks = r }
}

// NewStore creates a portfolio store over kv.
func NewStore(kv store.KV, clock pricing.Clock, log *zap.Logger, opts ...Option) *Store {
	s := &Store{
		kv:          kv,
		clock:       clock,
		locks:       NewLockRegistry(),
		initialCash: DefaultInitialCash,
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key is the KV key holding userID's portfolio record.
func Key(userID string) string {
	if userID == "" {
		userID = DefaultUserID
	}
	return "portfolio:" + userID
}

// InitialCash is the starting cash of portfolios created by this store.
func (s *Store) InitialCash() decimal.Decimal { return s.initialCash }

// Initialize replaces userID's portfolio with a fresh one. It always returns
// the new portfolio; a failed write is logged and the unsaved record returned.
func (s *Store) Initialize(ctx context.Context, userID string) *model.Portfolio {
	unlock := s.locks.Lock(Key(userID))
	defer unlock()
	return s.initializeLocked(ctx, userID)
}

// Load returns userID's portfolio. A missing, unreadable, or corrupt record
// is replaced with a fresh portfolio rather than surfaced as an error.
func (s *Store) Load(ctx context.Context, userID string) *model.Portfolio {
	unlock := s.locks.Lock(Key(userID))
	defer unlock()
	return s.loadLocked(ctx, userID)
}

// Reset clears userID's persisted portfolio and re-initialises it.
func (s *Store) Reset(ctx context.Context, userID string) *model.Portfolio {
	unlock := s.locks.Lock(Key(userID))
	defer unlock()

	if err := s.kv.Remove(ctx, Key(userID)); err != nil {
		s.log.Error("failed to clear portfolio", zap.String("user", userID), zap.Error(err))
	}
	p := s.initializeLocked(ctx, userID)
	s.log.Info("portfolio reset", zap.String("user", userID))
	return p
}

// RefreshPrices re-quotes every holding and persists the revalued portfolio.
// A holding whose quote fails keeps its previous price.
func (s *Store) RefreshPrices(ctx context.Context, userID string, quote QuoteFunc) *model.Portfolio {
	unlock := s.locks.Lock(Key(userID))
	defer unlock()

	p := s.loadLocked(ctx, userID)
	for id, h := range p.Holdings {
		price, err := quote(ctx, id)
		if err != nil {
			s.log.Warn("quote failed, keeping stale price",
				zap.String("user", userID),
				zap.Int64("movie_id", id),
				zap.Error(err),
			)
			continue
		}
		h.CurrentPrice = price.CurrentPrice
		p.Holdings[id] = h
	}

	Recalculate(p, s.clock.Now())
	if err := s.save(ctx, p); err != nil {
		s.log.Error("failed to persist refreshed portfolio", zap.String("user", userID), zap.Error(err))
	}
	return p
}

// Update runs fn against a copy of userID's portfolio under the user's lock.
// When fn returns nil the aggregates are recomputed and the result persisted
// before it is returned. When fn returns an error nothing is written and the
// error is passed through unchanged.
func (s *Store) Update(ctx context.Context, userID string, fn func(p *model.Portfolio) error) (*model.Portfolio, error) {
	unlock := s.locks.Lock(Key(userID))
	defer unlock()

	p := s.loadLocked(ctx, userID).Clone()
	if err := fn(p); err != nil {
		return nil, err
	}

	Recalculate(p, s.clock.Now())
	if err := s.save(ctx, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return p, nil
}

func (s *Store) initializeLocked(ctx context.Context, userID string) *model.Portfolio {
	if userID == "" {
		userID = DefaultUserID
	}
	now := s.clock.Now()
	p := &model.Portfolio{
		UserID:          userID,
		Cash:            s.initialCash,
		InitialCash:     s.initialCash,
		TotalValue:      s.initialCash,
		TotalInvested:   decimal.Zero,
		TotalProfitLoss: decimal.Zero,
		Holdings:        make(map[int64]model.Holding),
		Transactions:    []model.Transaction{},
		CreatedAt:       now,
		LastUpdated:     now,
	}
	if err := s.save(ctx, p); err != nil {
		s.log.Error("failed to persist new portfolio", zap.String("user", userID), zap.Error(err))
	}
	return p
}

func (s *Store) loadLocked(ctx context.Context, userID string) *model.Portfolio {
	raw, err := s.kv.Get(ctx, Key(userID))
	if err != nil {
		cause := "read_error"
		if errors.Is(err, store.ErrNotFound) {
			cause = "missing"
		} else {
			s.log.Warn("portfolio read failed, re-initialising", zap.String("user", userID), zap.Error(err))
		}
		metrics.PortfolioRecoveries.WithLabelValues(cause).Inc()
		return s.initializeLocked(ctx, userID)
	}

	p, err := decode(raw)
	if err != nil {
		s.log.Warn("portfolio record corrupt, re-initialising", zap.String("user", userID), zap.Error(err))
		metrics.PortfolioRecoveries.WithLabelValues("corrupt").Inc()
		return s.initializeLocked(ctx, userID)
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	if !p.InitialCash.IsPositive() {
		p.InitialCash = s.initialCash
	}
	return p
}

func (s *Store) save(ctx context.Context, p *model.Portfolio) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding portfolio: %w", err)
	}
	return s.kv.Set(ctx, Key(p.UserID), string(data))
}

func decode(raw string) (*model.Portfolio, error) {
	var p model.Portfolio
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decoding portfolio: %w", err)
	}
	if p.Holdings == nil {
		p.Holdings = make(map[int64]model.Holding)
	}
	if p.Transactions == nil {
		p.Transactions = []model.Transaction{}
	}
	for id, h := range p.Holdings {
		if h.Shares <= 0 || h.MovieID != id {
			return nil, fmt.Errorf("decoding portfolio: invalid holding for movie %d", id)
		}
	}
	return &p, nil
}
