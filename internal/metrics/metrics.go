// Package metrics provides Prometheus instrumentation for the market engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts executed trades, partitioned by type (buy/sell).
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinemarket_trades_total",
		Help: "Total number of trades executed",
	}, []string{"type"})

	// TradeRejections counts business-rule rejections by reason code.
	TradeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinemarket_trade_rejections_total",
		Help: "Trades rejected by ledger rules",
	}, []string{"reason"})

	// TradeLatency tracks trade execution latency, including persistence.
	TradeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cinemarket_trade_latency_seconds",
		Help:    "Trade execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	// SharesTraded tracks cumulative share volume per movie.
	SharesTraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinemarket_shares_traded_total",
		Help: "Cumulative trade volume in shares",
	}, []string{"movie_id", "type"})

	// QuoteFallbacks counts quotes served from the fallback price because
	// catalog metadata was unavailable.
	QuoteFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinemarket_quote_fallbacks_total",
		Help: "Quotes served with fallback pricing",
	})

	// PortfolioRecoveries counts loads that re-initialised a missing or
	// corrupt portfolio record.
	PortfolioRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinemarket_portfolio_recoveries_total",
		Help: "Portfolio loads that fell back to initialisation",
	}, []string{"cause"})

	// TrackedMovies is the number of movies on the live price board.
	TrackedMovies = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cinemarket_tracked_movies",
		Help: "Number of movies on the live price board",
	})

	// TickerTicks counts simulator steps applied by the ticker.
	TickerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinemarket_ticker_ticks_total",
		Help: "Price simulator steps applied",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cinemarket_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinemarket_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cinemarket_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern prefers the chi route pattern over the raw path so user IDs
// and movie symbols do not explode label cardinality.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack lets websocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}
