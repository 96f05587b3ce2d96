package ws

import (
	"sync"

	"go.uber.org/zap"

	"github.com/charukaonline/uninest-sub000/internal/metrics"
	"github.com/charukaonline/uninest-sub000/internal/models"
)

// Hub tracks live connections grouped by user id. A user's group is the only
// addressing unit: server pushes go to one group, never broadcast. Publishing
// is fire-and-forget; a slow or absent consumer just misses the event and
// re-syncs from the store on its next fetch.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[string]*Connection
	log    *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		groups: make(map[string]map[string]*Connection),
		log:    log,
	}
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	if _, ok := h.groups[c.userID]; !ok {
		h.groups[c.userID] = make(map[string]*Connection)
	}
	h.groups[c.userID][c.id] = c
	h.mu.Unlock()
	metrics.WSConnections.Inc()
	h.log.Infow("ws connected", "user", c.userID, "conn", c.id)
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	if conns, ok := h.groups[c.userID]; ok {
		if _, ok := conns[c.id]; ok {
			delete(conns, c.id)
			close(c.done)
			metrics.WSConnections.Dec()
		}
		if len(conns) == 0 {
			delete(h.groups, c.userID)
		}
	}
	h.mu.Unlock()
	h.log.Infow("ws disconnected", "user", c.userID, "conn", c.id)
}

// Publish delivers an event to every live connection in userID's group.
// Events for users with no open connection are dropped; the durable store
// remains the source of truth for reconnecting clients.
func (h *Hub) Publish(userID string, event models.WSEvent) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.groups[userID]))
	for _, c := range h.groups[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		select {
		case c.send <- event:
		default:
			// Backpressure: the connection's buffer is full, drop rather
			// than block the publisher.
			h.log.Warnw("ws send buffer full, dropping event", "user", userID, "conn", c.id, "event", event.Type)
		}
	}
}

// Connected reports whether userID has at least one open connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[userID]) > 0
}
