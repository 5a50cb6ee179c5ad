package app

import (
	"sync"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/huddle-dev/huddle/internal/domain"
)

// Conn is a live signaling connection. The hub is the only place that
// maps peer ids to I/O handles; everything below it works with ids.
type Conn interface {
	TrySend(data []byte) error
	Close()
}

type Hub struct {
	mu    sync.RWMutex
	conns map[domain.PeerID]Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[domain.PeerID]Conn)}
}

func (h *Hub) Register(id domain.PeerID, c Conn) {
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
}

func (h *Hub) Unregister(id domain.PeerID) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

func (h *Hub) Get(id domain.PeerID) (Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

// Send marshals v and pushes it to the peer. Slow or gone peers only
// get a log line; a push must never block or fail the caller.
func (h *Hub) Send(id domain.PeerID, v any) {
	c, ok := h.Get(id)
	if !ok {
		return
	}
	b, err := sonic.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("marshal push")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "app.hub").Str("peer_id", string(id)).Msg("push dropped")
	}
}

func (h *Hub) CloseConn(id domain.PeerID) {
	if c, ok := h.Get(id); ok {
		c.Close()
	}
}
