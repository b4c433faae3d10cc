package http

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/chalkin/chalkin/internal/core/domain"
	"github.com/chalkin/chalkin/internal/core/ports"
	"github.com/chalkin/chalkin/internal/pkg/metrics"
)

// Hub fans export status events out to WebSocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	userID string
	send   chan []byte

	mu      sync.Mutex
	exports map[string]bool // empty means every export of the user
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*hubClient]struct{})}
}

// Run feeds the hub from sub. It returns once the subscription is set up.
func (h *Hub) Run(ctx context.Context, sub ports.EventSubscriber) error {
	return sub.SubscribeExportEvents(ctx, h.Broadcast)
}

// Broadcast delivers ev to every client of the export's owner that watches
// it. Slow clients miss events rather than block the hub.
func (h *Hub) Broadcast(ctx context.Context, ev *domain.ExportEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		if cl.userID != ev.UserID || !cl.watches(ev.ExportID) {
			continue
		}
		select {
		case cl.send <- data:
		default:
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(userID string) *hubClient {
	cl := &hubClient{
		userID:  userID,
		send:    make(chan []byte, 16),
		exports: make(map[string]bool),
	}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	metrics.ActiveWebSockets.Inc()
	return cl
}

func (h *Hub) unregister(cl *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
		metrics.ActiveWebSockets.Dec()
	}
	h.mu.Unlock()
}

func (cl *hubClient) watches(exportID string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.exports) == 0 || cl.exports[exportID]
}

func (cl *hubClient) subscribe(exportID string) {
	cl.mu.Lock()
	cl.exports[exportID] = true
	cl.mu.Unlock()
}

func (cl *hubClient) unsubscribe(exportID string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if !cl.exports[exportID] {
		return false
	}
	delete(cl.exports, exportID)
	return true
}
