package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cinemarket/market-engine/internal/limits"
	"github.com/cinemarket/market-engine/internal/logger"
	"github.com/cinemarket/market-engine/internal/market"
	"github.com/cinemarket/market-engine/internal/metrics"
	"github.com/cinemarket/market-engine/internal/portfolio"
	"github.com/cinemarket/market-engine/internal/pricing"
	"github.com/cinemarket/market-engine/internal/trade"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the market engine HTTP server and price ticker",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.Must(cfg.Server.Development)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	kv, closeKV, err := openKV(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer closeKV()

	// --- Pricing ---
	clock := pricing.SystemClock{}
	rng := pricing.NewRand(seedFor(cfg.Market))
	cat := openCatalog(cfg.Catalog.TMDB, log)
	quoter := pricing.NewQuoter(cat, pricing.NewEngine(clock, rng), clock, log)
	sim := pricing.NewSimulator(clock, rng)

	// --- Portfolios and trading ---
	portfolios := portfolio.NewStore(kv, clock, log,
		portfolio.WithInitialCash(decimal.NewFromFloat(cfg.Portfolio.InitialCash)))

	hub := trade.NewWSHub(log)
	go hub.Run(ctx)

	opts := []trade.ProcessorOption{trade.WithHub(hub)}
	limiter := limits.NewPositionLimiter(cfg.Limits.MaxSharesPerMovie,
		decimal.NewFromFloat(cfg.Limits.MaxPositionPercent))
	if limiter.Enabled() {
		opts = append(opts, trade.WithLimiter(limiter))
		log.Info("position limits enabled",
			zap.Int64("max_shares_per_movie", limiter.MaxSharesPerMovie),
			zap.String("max_position_percent", limiter.MaxPositionPercent.String()),
		)
	}
	processor := trade.NewProcessor(portfolios, trade.UUIDGenerator{}, clock, log, opts...)

	// --- Live market ---
	board := market.NewBoard()
	for _, id := range cfg.Market.Watchlist {
		board.Track(quoter.Quote(ctx, id))
	}
	ticker := market.NewTicker(board, sim, cfg.Market.TickInterval, hub, log)
	go ticker.Run(ctx)

	handler := trade.NewHandler(trade.HandlerDeps{
		Processor:  processor,
		Portfolios: portfolios,
		Quoter:     quoter,
		Simulator:  sim,
		Board:      board,
		Hub:        hub,
	}, log)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      newRouter(handler, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("market-engine listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Backend),
			zap.Int("watchlist", board.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down market-engine")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(h *trade.Handler, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// CORS for the browser client.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"market-engine"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", h.Routes)
	return r
}

// requestLogger logs each request through zap.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
