package trade

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cinemarket/market-engine/internal/market"
	"github.com/cinemarket/market-engine/internal/model"
	"github.com/cinemarket/market-engine/internal/portfolio"
	"github.com/cinemarket/market-engine/internal/pricing"
	"github.com/cinemarket/market-engine/internal/stats"
	"github.com/cinemarket/market-engine/internal/symbol"
)

// HandlerDeps holds the collaborators behind the HTTP API.
type HandlerDeps struct {
	Processor  *Processor
	Portfolios *portfolio.Store
	Quoter     *pricing.Quoter
	Simulator  *pricing.Simulator
	Board      *market.Board
	Hub        *WSHub // optional
}

// Handler serves the market and portfolio HTTP API.
type Handler struct {
	processor  *Processor
	portfolios *portfolio.Store
	quoter     *pricing.Quoter
	sim        *pricing.Simulator
	board      *market.Board
	hub        *WSHub
	log        *zap.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(deps HandlerDeps, log *zap.Logger) *Handler {
	return &Handler{
		processor:  deps.Processor,
		portfolios: deps.Portfolios,
		quoter:     deps.Quoter,
		sim:        deps.Simulator,
		board:      deps.Board,
		hub:        deps.Hub,
		log:        log,
	}
}

// Routes mounts the API on r. Callers mount r under /api/v1.
func (h *Handler) Routes(r chi.Router) {
	if h.hub != nil {
		r.Get("/ws", h.hub.HandleWS)
	}

	r.Get("/market", h.GetMarket)
	r.Get("/movies/{symbol}/price", h.GetPrice)
	r.Post("/prices/advance", h.AdvancePrice)

	r.Route("/portfolio/{userID}", func(r chi.Router) {
		r.Get("/", h.GetPortfolio)
		r.Get("/stats", h.GetStats)
		r.Post("/refresh", h.RefreshPortfolio)
		r.Post("/reset", h.ResetPortfolio)
		r.Post("/buy", h.Buy)
		r.Post("/sell", h.Sell)
	})
}

// --- Request/Response types ---

// TradeRequest is the JSON body for buy and sell. The movie is named by
// symbol (MOV-550 or 550) or movie_id. Price defaults to the market price.
type TradeRequest struct {
	Symbol     string           `json:"symbol,omitempty"`
	MovieID    int64            `json:"movie_id,omitempty"`
	Title      string           `json:"title,omitempty"`
	PosterPath string           `json:"poster_path,omitempty"`
	Shares     int64            `json:"shares"`
	Price      *decimal.Decimal `json:"price,omitempty"`
}

// QuoteResponse is the JSON body returned from GET /movies/{symbol}/price.
type QuoteResponse struct {
	Symbol string `json:"symbol"`
	Title  string `json:"title,omitempty"`
	model.MoviePrice
}

// --- HTTP Handlers ---

// GetMarket handles GET /api/v1/market
// Returns every price on the live board, ordered by movie ID.
func (h *Handler) GetMarket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.board.Snapshot())
}

// GetPrice handles GET /api/v1/movies/{symbol}/price
// A catalogued movie not yet on the board is quoted and starts trading on
// the ticker. Movies the catalog does not know get the fallback price and
// are not tracked. ?fresh=true re-derives the price from the catalog.
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	movieID, err := symbol.Parse(chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	fresh, _ := strconv.ParseBool(r.URL.Query().Get("fresh"))
	resp := QuoteResponse{Symbol: symbol.Format(movieID)}

	if p, ok := h.board.Get(movieID); ok && !fresh {
		resp.MoviePrice = p
	} else {
		price, attrs, found := h.quoter.Lookup(r.Context(), movieID)
		if found {
			h.board.Track(price)
		}
		resp.MoviePrice = price
		resp.Title = attrs.Title
	}

	writeJSON(w, http.StatusOK, resp)
}

// AdvancePrice handles POST /api/v1/prices/advance
// Applies one simulator step to the MoviePrice in the body.
func (h *Handler) AdvancePrice(w http.ResponseWriter, r *http.Request) {
	var p model.MoviePrice
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !p.CurrentPrice.IsPositive() {
		writeError(w, "current_price must be positive", http.StatusBadRequest)
		return
	}
	if p.Volatility < 0 {
		writeError(w, "volatility cannot be negative", http.StatusBadRequest)
		return
	}

	p.CurrentPrice = pricing.ClampPrice(p.CurrentPrice)
	writeJSON(w, http.StatusOK, h.sim.Advance(p))
}

// GetPortfolio handles GET /api/v1/portfolio/{userID}
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.portfolios.Load(r.Context(), chi.URLParam(r, "userID")))
}

// GetStats handles GET /api/v1/portfolio/{userID}/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	p := h.portfolios.Load(r.Context(), chi.URLParam(r, "userID"))
	writeJSON(w, http.StatusOK, stats.ComputeStats(p))
}

// RefreshPortfolio handles POST /api/v1/portfolio/{userID}/refresh
// Re-quotes every holding; holdings whose quote fails keep their last price.
func (h *Handler) RefreshPortfolio(w http.ResponseWriter, r *http.Request) {
	p := h.portfolios.RefreshPrices(r.Context(), chi.URLParam(r, "userID"), h.quoter.FetchPrice)
	writeJSON(w, http.StatusOK, p)
}

// ResetPortfolio handles POST /api/v1/portfolio/{userID}/reset
func (h *Handler) ResetPortfolio(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.portfolios.Reset(r.Context(), chi.URLParam(r, "userID")))
}

// Buy handles POST /api/v1/portfolio/{userID}/buy
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	req, movieID, ok := decodeTrade(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	q := &catalogQuote{quoter: h.quoter, movieID: movieID}
	res, err := h.processor.Buy(ctx, BuyRequest{
		UserID:     chi.URLParam(r, "userID"),
		MovieID:    movieID,
		Title:      h.resolveTitle(ctx, q, req.Title),
		PosterPath: req.PosterPath,
		Shares:     req.Shares,
		Price:      h.resolvePrice(ctx, q, req.Price),
	})
	h.writeResult(w, res, err)
}

// Sell handles POST /api/v1/portfolio/{userID}/sell
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	req, movieID, ok := decodeTrade(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	q := &catalogQuote{quoter: h.quoter, movieID: movieID}
	res, err := h.processor.Sell(ctx, SellRequest{
		UserID:  chi.URLParam(r, "userID"),
		MovieID: movieID,
		Shares:  req.Shares,
		Price:   h.resolvePrice(ctx, q, req.Price),
	})
	h.writeResult(w, res, err)
}

// catalogQuote looks a movie up at most once per request.
type catalogQuote struct {
	quoter  *pricing.Quoter
	movieID int64
	done    bool
	price   model.MoviePrice
	attrs   model.MovieAttributes
	found   bool
}

func (q *catalogQuote) get(ctx context.Context) (model.MoviePrice, model.MovieAttributes, bool) {
	if !q.done {
		q.price, q.attrs, q.found = q.quoter.Lookup(ctx, q.movieID)
		q.done = true
	}
	return q.price, q.attrs, q.found
}

// resolvePrice picks the trade price: an explicit price, else the live
// board price, else a fresh quote.
func (h *Handler) resolvePrice(ctx context.Context, q *catalogQuote, explicit *decimal.Decimal) decimal.Decimal {
	if explicit != nil {
		return *explicit
	}
	if p, ok := h.board.Get(q.movieID); ok {
		return p.CurrentPrice
	}
	price, _, _ := q.get(ctx)
	return price.CurrentPrice
}

// resolveTitle looks the title up in the catalog when the client sent none.
func (h *Handler) resolveTitle(ctx context.Context, q *catalogQuote, title string) string {
	if title != "" {
		return title
	}
	_, attrs, found := q.get(ctx)
	if !found {
		return ""
	}
	return attrs.Title
}

func (h *Handler) writeResult(w http.ResponseWriter, res *Result, err error) {
	if err != nil {
		h.log.Error("trade failed", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, "trade could not be recorded, please retry", status)
		return
	}
	if !res.Success {
		status := http.StatusConflict
		if res.Code == CodeInvalidQuantity || res.Code == CodeInvalidPrice {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeTrade(w http.ResponseWriter, r *http.Request) (TradeRequest, int64, bool) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return req, 0, false
	}

	movieID := req.MovieID
	if req.Symbol != "" {
		id, err := symbol.Parse(req.Symbol)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return req, 0, false
		}
		movieID = id
	}
	if movieID <= 0 {
		writeError(w, "symbol or movie_id is required", http.StatusBadRequest)
		return req, 0, false
	}
	return req, movieID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
