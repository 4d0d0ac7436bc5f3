package portfolio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cinemarket/market-engine/internal/model"
	"github.com/cinemarket/market-engine/internal/pricing"
	"github.com/cinemarket/market-engine/internal/store"
)

var t0 = time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)

// brokenKV fails every call.
type brokenKV struct{}

func (brokenKV) Get(context.Context, string) (string, error) { return "", errors.New("connection refused") }
func (brokenKV) Set(context.Context, string, string) error   { return errors.New("connection refused") }
func (brokenKV) Remove(context.Context, string) error        { return errors.New("connection refused") }

func newTestStore(kv store.KV, opts ...Option) *Store {
	return NewStore(kv, pricing.FixedClock{T: t0}, zap.NewNop(), opts...)
}

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// seed writes a portfolio holding shares of movie 1 bought at avg.
func seed(t *testing.T, s *Store, userID string, shares int64, avg float64) {
	t.Helper()
	_, err := s.Update(context.Background(), userID, func(p *model.Portfolio) error {
		cost := dec(avg).Mul(decimal.NewFromInt(shares))
		p.Cash = p.Cash.Sub(cost)
		p.Holdings[1] = model.Holding{
			MovieID: 1, Title: "Heat", Shares: shares,
			AveragePrice: dec(avg), CurrentPrice: dec(avg), OpenedAt: t0,
		}
		return nil
	})
	require.NoError(t, err)
}

func TestInitialize(t *testing.T) {
	kv := store.NewMemoryKV()
	s := newTestStore(kv)

	p := s.Initialize(context.Background(), "alice")
	assert.Equal(t, "alice", p.UserID)
	assert.True(t, p.Cash.Equal(DefaultInitialCash))
	assert.True(t, p.TotalValue.Equal(DefaultInitialCash))
	assert.True(t, p.TotalProfitLoss.IsZero())
	assert.Empty(t, p.Holdings)
	assert.Empty(t, p.Transactions)
	assert.Equal(t, t0, p.CreatedAt)
	assert.Equal(t, t0, p.LastUpdated)

	_, err := kv.Get(context.Background(), Key("alice"))
	assert.NoError(t, err, "initialize should persist")
}

func TestInitialize_OverwritesPriorState(t *testing.T) {
	s := newTestStore(store.NewMemoryKV())
	seed(t, s, "alice", 10, 50)

	p := s.Initialize(context.Background(), "alice")
	assert.Empty(t, p.Holdings)
	assert.Empty(t, s.Load(context.Background(), "alice").Holdings)
}

func TestInitialize_CustomCash(t *testing.T) {
	s := newTestStore(store.NewMemoryKV(), WithInitialCash(dec(2500)))
	p := s.Initialize(context.Background(), "")
	assert.Equal(t, DefaultUserID, p.UserID)
	assert.True(t, p.Cash.Equal(dec(2500)))
	assert.True(t, s.InitialCash().Equal(dec(2500)))
}

func TestLoad_MissingInitialises(t *testing.T) {
	s := newTestStore(store.NewMemoryKV())
	p := s.Load(context.Background(), "new-user")
	assert.True(t, p.Cash.Equal(DefaultInitialCash))
	assert.Empty(t, p.Holdings)
}

func TestLoad_CorruptRecordInitialises(t *testing.T) {
	tests := map[string]string{
		"not json":           "{{{",
		"zero-share holding": `{"cash":"100","holdings":{"1":{"movie_id":1,"shares":0}}}`,
		"mismatched key":     `{"cash":"100","holdings":{"1":{"movie_id":2,"shares":3}}}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			kv := store.NewMemoryKV()
			require.NoError(t, kv.Set(context.Background(), Key("alice"), raw))

			p := newTestStore(kv).Load(context.Background(), "alice")
			assert.True(t, p.Cash.Equal(DefaultInitialCash))
			assert.Empty(t, p.Holdings)
		})
	}
}

func TestLoad_UnreachableStoreInitialises(t *testing.T) {
	p := newTestStore(brokenKV{}).Load(context.Background(), "alice")
	assert.True(t, p.Cash.Equal(DefaultInitialCash))
}

func TestLoad_RoundTripsDecimals(t *testing.T) {
	s := newTestStore(store.NewMemoryKV())
	seed(t, s, "alice", 3, 33.33)

	p := s.Load(context.Background(), "alice")
	assert.True(t, p.Cash.Equal(dec(99900.01)), "cash = %s", p.Cash)
	assert.True(t, p.Holdings[1].AveragePrice.Equal(dec(33.33)))
	assert.Equal(t, "Heat", p.Holdings[1].Title)
}

func TestReset(t *testing.T) {
	kv := store.NewMemoryKV()
	s := newTestStore(kv)
	seed(t, s, "alice", 10, 50)
	seed(t, s, "bob", 5, 20)

	p := s.Reset(context.Background(), "alice")
	assert.Empty(t, p.Holdings)
	assert.True(t, p.Cash.Equal(DefaultInitialCash))
	assert.Len(t, s.Load(context.Background(), "bob").Holdings, 1, "reset must not touch other users")
}

func TestRefreshPrices(t *testing.T) {
	s := newTestStore(store.NewMemoryKV())
	seed(t, s, "alice", 10, 50)

	p := s.RefreshPrices(context.Background(), "alice", func(_ context.Context, id int64) (model.MoviePrice, error) {
		return model.MoviePrice{MovieID: id, CurrentPrice: dec(60)}, nil
	})

	h := p.Holdings[1]
	assert.True(t, h.CurrentPrice.Equal(dec(60)))
	assert.True(t, h.TotalValue.Equal(dec(600)))
	assert.True(t, h.ProfitLoss.Equal(dec(100)))
	assert.InDelta(t, 20.0, h.ProfitLossPercent, 1e-9)
	assert.True(t, p.TotalValue.Equal(dec(100100)))
	assert.True(t, p.TotalProfitLoss.Equal(dec(100)))
	assert.InDelta(t, 0.1, p.TotalProfitLossPercent, 1e-9)

	stored := s.Load(context.Background(), "alice")
	assert.True(t, stored.Holdings[1].CurrentPrice.Equal(dec(60)), "refresh should persist")
}

func TestRefreshPrices_FailedQuoteKeepsStalePrice(t *testing.T) {
	s := newTestStore(store.NewMemoryKV())
	seed(t, s, "alice", 10, 50)
	_, err := s.Update(context.Background(), "alice", func(p *model.Portfolio) error {
		p.Holdings[2] = model.Holding{MovieID: 2, Shares: 4, AveragePrice: dec(10), CurrentPrice: dec(10), OpenedAt: t0}
		return nil
	})
	require.NoError(t, err)

	p := s.RefreshPrices(context.Background(), "alice", func(_ context.Context, id int64) (model.MoviePrice, error) {
		if id == 1 {
			return model.MoviePrice{}, errors.New("timeout")
		}
		return model.MoviePrice{MovieID: id, CurrentPrice: dec(15)}, nil
	})

	assert.True(t, p.Holdings[1].CurrentPrice.Equal(dec(50)))
	assert.True(t, p.Holdings[2].CurrentPrice.Equal(dec(15)))
}

func TestUpdate_ErrorLeavesRecordUntouched(t *testing.T) {
	s := newTestStore(store.NewMemoryKV())
	seed(t, s, "alice", 10, 50)

	sentinel := errors.New("rejected")
	_, err := s.Update(context.Background(), "alice", func(p *model.Portfolio) error {
		p.Cash = decimal.Zero
		delete(p.Holdings, 1)
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	p := s.Load(context.Background(), "alice")
	assert.Len(t, p.Holdings, 1)
	assert.True(t, p.Cash.Equal(dec(99500)))
}

func TestUpdate_PersistFailure(t *testing.T) {
	s := newTestStore(brokenKV{})
	_, err := s.Update(context.Background(), "alice", func(*model.Portfolio) error { return nil })
	assert.ErrorIs(t, err, ErrPersist)
}

func TestUpdate_Serialised(t *testing.T) {
	s := newTestStore(store.NewMemoryKV())

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(context.Background(), "alice", func(p *model.Portfolio) error {
				p.Cash = p.Cash.Sub(decimal.NewFromInt(1))
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, s.Load(context.Background(), "alice").Cash.Equal(dec(99975)))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "portfolio:alice", Key("alice"))
	assert.Equal(t, "portfolio:default", Key(""))
}
