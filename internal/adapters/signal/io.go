package signal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/huddle-dev/huddle/internal/domain"
	"github.com/huddle-dev/huddle/internal/metrics"
)

type envelope struct {
	Type string          `json:"type"`
	RID  string          `json:"rid,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type ackError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ack struct {
	Type  string    `json:"type"`
	RID   string    `json:"rid"`
	Data  any       `json:"data,omitempty"`
	Error *ackError `json:"error,omitempty"`
}

func (ctl *Controller) writePump(ctx context.Context, c *WsConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, c *WsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("peer_id", string(c.peerID)).Msg("readPump closing")
		ctl.Orch.Disconnect(c.peerID)
		ctl.queueLimiter.Forget(c.peerID)
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.ReadLimit)
	deadline := ctl.PingPeriod + 10*time.Second
	_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "signal").Str("peer_id", string(c.peerID)).Msg("readPump read error")
				}
				return
			}
			ctl.dispatch(c, data)
		}
	}
}

func (ctl *Controller) dispatch(c *WsConn, data []byte) {
	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}
	metrics.SignalMessages.WithLabelValues(env.Type).Inc()

	// guests exist only for random chat and its ephemeral rooms
	if c.guest && !guestAllowed(env.Type) {
		ctl.sendErr(c, env, domain.ErrUnauthorized)
		return
	}

	switch env.Type {
	case "joinRoom":
		ctl.handleJoinRoom(c, env)
	case "leaveRoom":
		ctl.handleLeaveRoom(c, env)
	case "getRouterRtpCapabilities":
		ctl.handleRouterCapabilities(c, env)
	case "createWebRtcTransport":
		ctl.handleCreateTransport(c, env)
	case "connectTransport":
		ctl.handleConnectTransport(c, env)
	case "produce":
		ctl.handleProduce(c, env)
	case "consume":
		ctl.handleConsume(c, env)
	case "producerMuted":
		ctl.handleProducerMuted(c, env)
	case "produceData":
		ctl.handleProduceData(c, env)
	case "consumeData":
		ctl.handleConsumeData(c, env)
	case "dataConsumerResume":
		ctl.handleDataConsumerResume(c, env)
	case "screenShare:request":
		ctl.handleShareRequest(c, env)
	case "screenShare:bind":
		ctl.handleShareBind(c, env)
	case "screenShare:stopped":
		ctl.handleShareStop(c, env)
	case "randomChat:join":
		ctl.handleQueueJoin(c, env)
	case "randomChat:next":
		ctl.handleQueueNext(c, env)
	case "randomChat:leave":
		ctl.handleQueueLeave(c, env)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func guestAllowed(typ string) bool {
	switch typ {
	case "joinRoom", "leaveRoom",
		"getRouterRtpCapabilities", "createWebRtcTransport", "connectTransport",
		"produce", "consume", "producerMuted",
		"produceData", "consumeData", "dataConsumerResume":
		return true
	}
	return strings.HasPrefix(typ, "randomChat:")
}

func (ctl *Controller) sendJSON(c *WsConn, v any) {
	b, err := sonic.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

// sendAck replies to a request. Requests without a rid get no reply.
func (ctl *Controller) sendAck(c *WsConn, env envelope, data any) {
	if env.RID == "" {
		return
	}
	ctl.sendJSON(c, ack{Type: "ack", RID: env.RID, Data: data})
}

func (ctl *Controller) sendErr(c *WsConn, env envelope, err error) {
	log.Warn().Err(err).
		Str("module", "signal").
		Str("type", env.Type).
		Str("peer_id", string(c.peerID)).
		Msg("request failed")
	if env.RID == "" {
		return
	}
	ctl.sendJSON(c, ack{Type: "ack", RID: env.RID, Error: toAckError(err)})
}

func toAckError(err error) *ackError {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrTransportNotFound),
		errors.Is(err, domain.ErrProducerNotFound),
		errors.Is(err, domain.ErrDataProducerNotFound),
		errors.Is(err, domain.ErrNotInSession):
		return &ackError{Code: "not_found", Message: err.Error()}
	case errors.Is(err, domain.ErrConsumeRejected),
		errors.Is(err, domain.ErrShareInUse),
		errors.Is(err, domain.ErrShareNotOwner):
		return &ackError{Code: "rejected", Message: err.Error()}
	case errors.Is(err, domain.ErrUnauthorized):
		return &ackError{Code: "unauthorized", Message: err.Error()}
	default:
		return &ackError{Code: "internal", Message: err.Error()}
	}
}
