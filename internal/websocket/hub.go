package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"fnopulse/internal/infrastructure"
	"fnopulse/pkg/contracts/events"
)

// broadcastBuffer bounds events queued while the hub loop is busy or not
// yet running. Events beyond it are dropped and logged.
const broadcastBuffer = 16

// Hub maintains the set of active clients and broadcasts events to them
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// last is the most recent dataset status, replayed to new clients.
	mu   sync.RWMutex
	last []byte

	count   atomic.Int64
	running atomic.Bool
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewHub creates a hub. Call Run to start it. metrics may be nil.
func NewHub(metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Run serves the hub until ctx is done, then disconnects every client.
// It must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	if !h.running.CompareAndSwap(false, true) {
		return
	}
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(ctx, c)
			}
			h.logger.InfoContext(ctx, "Hub shutting down")
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Add(1)
			h.addClients(ctx, 1)
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", len(h.clients)),
				slog.String("client_id", c.id),
				slog.String("remote_addr", c.remoteAddr))

			h.deliver(ctx, c, h.connectionMessage(c))
			h.mu.RLock()
			last := h.last
			h.mu.RUnlock()
			if last != nil {
				h.deliver(ctx, c, last)
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.remove(ctx, c)
				h.logger.InfoContext(ctx, "Client unregistered",
					slog.Int("total_clients", len(h.clients)),
					slog.String("client_id", c.id))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				h.deliver(ctx, c, msg)
			}
		}
	}
}

func (h *Hub) remove(ctx context.Context, c *Client) {
	delete(h.clients, c)
	h.count.Add(-1)
	h.addClients(ctx, -1)
	close(c.send)
}

// deliver queues msg for c. A client whose buffer is full is disconnected.
func (h *Hub) deliver(ctx context.Context, c *Client, msg []byte) {
	select {
	case c.send <- msg:
		if h.metrics != nil {
			h.metrics.StreamMessages.Add(ctx, 1)
		}
	default:
		if h.metrics != nil {
			h.metrics.StreamDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "slow_client")))
		}
		h.logger.WarnContext(ctx, "Client buffer full, disconnecting",
			slog.String("client_id", c.id))
		h.remove(ctx, c)
	}
}

func (h *Hub) addClients(ctx context.Context, n int64) {
	if h.metrics != nil {
		h.metrics.StreamClients.Add(ctx, n)
	}
}

func (h *Hub) connectionMessage(c *Client) []byte {
	data, _ := json.Marshal(events.NewMessage(events.TypeConnection, events.ConnectionData{
		Status:            "connected",
		ClientID:          c.id,
		HeartbeatInterval: int(pingPeriod.Seconds()),
	}))
	return data
}

// Broadcast sends msg to every connected client. It never blocks; when
// the queue is full the event is dropped. Dataset status events are kept
// and replayed to clients that connect later.
func (h *Hub) Broadcast(msg events.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal event",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
		return
	}

	if msg.Type == events.TypeDatasetStatus {
		h.mu.Lock()
		h.last = data
		h.mu.Unlock()
	}

	select {
	case h.broadcast <- data:
	default:
		if h.metrics != nil {
			h.metrics.StreamDropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", "queue_full")))
		}
		h.logger.Warn("Broadcast queue full, event dropped",
			slog.String("type", string(msg.Type)))
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
