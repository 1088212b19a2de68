package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gscconsolidate/internal/infrastructure"
	"gscconsolidate/internal/operations"
)

// TypeConnection is sent once to every client after it registers
const TypeConnection = "connection"

// broadcastBuffer bounds the events waiting for fan-out
const broadcastBuffer = 256

type envelope struct {
	eventType string
	payload   []byte
}

// Hub fans out operation events to every connected progress feed client.
// It implements operations.Publisher and http.Handler.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client

	mu       sync.RWMutex
	upgrader websocket.Upgrader
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewHub creates a hub accepting upgrades from allowedOrigins. A "*" entry
// accepts any origin; requests without an Origin header are always accepted.
func NewHub(allowedOrigins []string, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		metrics:    metrics,
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// Start runs the hub loop until Stop is called
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			infrastructure.RecordFeedClientChange(ctx, h.metrics, 1)
			h.logger.Info("Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			if hello, err := json.Marshal(map[string]interface{}{
				"type":      TypeConnection,
				"client_id": client.id,
				"status":    "connected",
				"timestamp": time.Now().UTC(),
			}); err == nil {
				select {
				case client.send <- hello:
				default:
				}
			}

		case client := <-h.unregister:
			h.remove(ctx, client, "client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			sent, dropped := 0, 0
			for _, c := range clients {
				select {
				case c.send <- msg.payload:
					sent++
				default:
					dropped++
					h.remove(ctx, c, "client send buffer full")
				}
			}
			infrastructure.RecordFeedDelivery(ctx, h.metrics, msg.eventType, sent, dropped)
		}
	}
}

// remove unregisters c and closes its send channel once
func (h *Hub) remove(ctx context.Context, c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	infrastructure.RecordFeedClientChange(ctx, h.metrics, -1)
	h.logger.Info("Client removed",
		slog.String("reason", reason),
		slog.Int("total_clients", count),
		slog.String("client_id", c.id),
		slog.Duration("connection_duration", time.Since(c.connectedAt)))
}

// Publish queues e for every connected client. Events are dropped when the
// hub is stopped or its queue is full so a slow feed never stalls a run.
func (h *Hub) Publish(e operations.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("Error marshaling operation event",
			slog.String("type", e.Type),
			slog.String("error", err.Error()))
		return
	}

	select {
	case <-h.quit:
		return
	default:
	}

	select {
	case h.broadcast <- envelope{eventType: e.Type, payload: payload}:
	default:
		infrastructure.RecordFeedDelivery(context.Background(), h.metrics, e.Type, 0, 1)
		h.logger.Warn("Broadcast queue full, dropping event",
			slog.String("type", e.Type),
			slog.String("operation_id", e.OperationID))
	}
}

// ServeHTTP upgrades the request and attaches a new feed client
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.Warn("WebSocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	client := newClient(h, conn, h.logger)
	select {
	case h.register <- client:
	case <-h.quit:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop ends the hub loop and disconnects every client
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
		infrastructure.RecordFeedClientChange(context.Background(), h.metrics, -1)
	}
}
