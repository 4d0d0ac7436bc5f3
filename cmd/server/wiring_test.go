package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cinemarket/market-engine/internal/catalog"
	"github.com/cinemarket/market-engine/internal/config"
	"github.com/cinemarket/market-engine/internal/market"
	"github.com/cinemarket/market-engine/internal/portfolio"
	"github.com/cinemarket/market-engine/internal/pricing"
	"github.com/cinemarket/market-engine/internal/store"
	"github.com/cinemarket/market-engine/internal/trade"
)

func TestOpenKV_DefaultsToMemory(t *testing.T) {
	kv, cleanup, err := openKV(context.Background(), config.Defaults().Storage, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &store.MemoryKV{}, kv)
}

func TestOpenKV_BadRedisURL(t *testing.T) {
	cfg := config.Defaults().Storage
	cfg.Backend = "redis"
	cfg.Redis.URL = "://nope"
	_, cleanup, err := openKV(context.Background(), cfg, zap.NewNop())
	cleanup()
	assert.Error(t, err)
}

func TestOpenCatalog_SampleWithoutKey(t *testing.T) {
	cat := openCatalog(config.TMDBConfig{}, zap.NewNop())
	m, err := cat.GetMovieAttributes(context.Background(), 27205)
	require.NoError(t, err)
	assert.Equal(t, "Inception", m.Title)

	assert.IsType(t, &catalog.TMDBClient{}, openCatalog(config.TMDBConfig{APIKey: "k"}, zap.NewNop()))
}

func TestRouter_HealthAndAPI(t *testing.T) {
	log := zap.NewNop()
	clock := pricing.SystemClock{}
	rng := pricing.NewRand(1)
	quoter := pricing.NewQuoter(catalog.NewSampleCatalog(), pricing.NewEngine(clock, rng), clock, log)
	ps := portfolio.NewStore(store.NewMemoryKV(), clock, log)
	h := trade.NewHandler(trade.HandlerDeps{
		Processor:  trade.NewProcessor(ps, trade.UUIDGenerator{}, clock, log),
		Portfolios: ps,
		Quoter:     quoter,
		Simulator:  pricing.NewSimulator(clock, rng),
		Board:      market.NewBoard(),
	}, log)
	router := newRouter(h, log)

	for _, path := range []string{"/health", "/metrics", "/api/v1/market", "/api/v1/portfolio/alice"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/market", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
