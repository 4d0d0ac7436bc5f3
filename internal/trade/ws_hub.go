// Package trade executes buys and sells against portfolios and serves the
// market HTTP and WebSocket API.
package trade

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cinemarket/market-engine/internal/metrics"
	"github.com/cinemarket/market-engine/internal/model"
	"github.com/cinemarket/market-engine/internal/symbol"
)

// Message types sent to WebSocket clients.
const (
	MessagePriceUpdate   = "price_update"
	MessageTradeExecuted = "trade_executed"
)

// WSMessage is a JSON message sent to WebSocket clients.
type WSMessage struct {
	Type               string  `json:"type"`
	MovieID            int64   `json:"movie_id"`
	Symbol             string  `json:"symbol"`
	Price              string  `json:"price,omitempty"`
	PriceChange        string  `json:"price_change,omitempty"`
	PriceChangePercent float64 `json:"price_change_percent,omitempty"`
	Side               string  `json:"side,omitempty"`
	Shares             int64   `json:"shares,omitempty"`
	Timestamp          int64   `json:"timestamp"` // epoch millis
}

// WSHub manages WebSocket connections and broadcasts messages to all
// connected clients when prices move or trades execute.
type WSHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.RWMutex
	log        *zap.Logger
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub(log *zap.Logger) *WSHub {
	return &WSHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's main event loop until ctx is cancelled.
// Must be called in a goroutine, at most once.
func (h *WSHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			metrics.WebSocketClients.Set(0)
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(total))
			h.log.Info("ws client connected", zap.Int("total", total))

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(total))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(total))
		}
	}
}

// Clients returns the number of connected clients.
func (h *WSHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to all connected clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Drop if buffer full to avoid blocking trade execution.
	}
}

// BroadcastPrice publishes a price move. It satisfies market.Broadcaster.
func (h *WSHub) BroadcastPrice(p model.MoviePrice) {
	h.Broadcast(WSMessage{
		Type:               MessagePriceUpdate,
		MovieID:            p.MovieID,
		Symbol:             symbol.Format(p.MovieID),
		Price:              p.CurrentPrice.StringFixed(2),
		PriceChange:        p.PriceChange.StringFixed(2),
		PriceChangePercent: p.PriceChangePercent,
		Timestamp:          p.LastUpdated.UnixMilli(),
	})
}

// BroadcastTrade publishes an executed trade.
func (h *WSHub) BroadcastTrade(tx model.Transaction) {
	h.Broadcast(WSMessage{
		Type:      MessageTradeExecuted,
		MovieID:   tx.MovieID,
		Symbol:    symbol.Format(tx.MovieID),
		Price:     tx.Price.StringFixed(2),
		Side:      string(tx.Type),
		Shares:    tx.Shares,
		Timestamp: tx.Timestamp.UnixMilli(),
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/v1/ws.
func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws upgrade failed", zap.Error(err))
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep connection alive through proxies.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			h.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			h.mu.Unlock()
			if err != nil {
				return
			}
		}
	}()
}
