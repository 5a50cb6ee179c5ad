// Package signal is the websocket protocol adapter.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/huddle-dev/huddle/internal/app"
	"github.com/huddle-dev/huddle/internal/config"
	"github.com/huddle-dev/huddle/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Orch       *app.Orchestrator
	ReadLimit  int64
	PingPeriod time.Duration

	queueLimiter *RateLimiter
}

func NewController(orch *app.Orchestrator, cfg *config.Config) *Controller {
	return &Controller{
		Orch:       orch,
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		// queue churn guard: a client may re-roll partners, just not in a tight loop
		queueLimiter: NewRateLimiter(10, time.Minute),
	}
}

type WsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool

	peerID domain.PeerID
	guest  bool
}

func (c *WsConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and binds the connection to a new
// peer. Identity comes from the auth middleware upstream.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	userID := domain.UserID(c.GetString("user_id"))
	name := c.GetString("user_name")
	guest := c.GetBool("guest")
	if userID == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	peerID := domain.PeerID(uuid.NewString())
	conn := &WsConn{
		conn:   ws,
		send:   make(chan []byte, 32),
		peerID: peerID,
		guest:  guest,
	}

	log.Info().
		Str("module", "signal").
		Str("peer_id", string(peerID)).
		Str("user_id", string(userID)).
		Bool("guest", guest).
		Msg("new WS connection")

	ctl.Orch.RegisterPeer(peerID, userID, name, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, conn)
	}()
}
