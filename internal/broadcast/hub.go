// Package broadcast fans task events out to connected websocket clients.
// The hub is constructed explicitly and injected into the task service, so
// there is no "not yet initialized" window: anything holding a *Hub can emit.
package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-taskflow-api/app/observability/metrics"
)

// Broadcaster is the emit contract the task service depends on.
type Broadcaster interface {
	Emit(event string, payload interface{})
}

var _ Broadcaster = (*Hub)(nil)

// Event is the wire envelope for every fan-out message.
type Event struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"ts"`
}

// Hub tracks connected clients and broadcasts marshalled events to them.
type Hub struct {
	logger *slog.Logger

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
}

// NewHub builds a hub; callers must start Run in its own goroutine.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
	}
}

// Run owns the client set; all membership changes and fan-out go through this
// loop so no locking is needed.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.logger.Debug("Websocket client connected", slog.Int("clients", len(h.clients)))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("Websocket client disconnected", slog.Int("clients", len(h.clients)))
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer: drop it rather than stall the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Emit marshals the event and enqueues it without blocking. If the broadcast
// buffer is full the event is dropped and logged; live updates are
// best-effort by contract.
func (h *Hub) Emit(event string, payload interface{}) {
	msg, err := json.Marshal(Event{Event: event, Data: payload, Timestamp: time.Now().UTC()})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast event",
			slog.String("event", event),
			slog.Any("error", err),
		)
		return
	}

	select {
	case h.broadcast <- msg:
		metrics.InitAppMetrics()
		metrics.Get().BroadcastEventsTotal.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("event", event)))
	default:
		h.logger.Warn("Broadcast buffer full, dropping event", slog.String("event", event))
	}
}
