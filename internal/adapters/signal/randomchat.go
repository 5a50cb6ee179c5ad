package signal

import (
	"errors"

	"github.com/rs/zerolog/log"
)

var errTooManyRequests = errors.New("too many queue requests")

func (ctl *Controller) handleQueueJoin(c *WsConn, env envelope) {
	if !ctl.queueLimiter.Allow(c.peerID) {
		ctl.sendErr(c, env, errTooManyRequests)
		return
	}

	if err := ctl.Orch.QueueJoin(c.peerID); err != nil {
		ctl.sendErr(c, env, err)
		return
	}
	ctl.sendAck(c, env, map[string]any{"queued": true})
}

func (ctl *Controller) handleQueueNext(c *WsConn, env envelope) {
	if !ctl.queueLimiter.Allow(c.peerID) {
		ctl.sendErr(c, env, errTooManyRequests)
		return
	}

	log.Info().Str("module", "signal").Str("peer_id", string(c.peerID)).Msg("queue next")
	if err := ctl.Orch.QueueNext(c.peerID); err != nil {
		ctl.sendErr(c, env, err)
		return
	}
	ctl.sendAck(c, env, map[string]any{"queued": true})
}

func (ctl *Controller) handleQueueLeave(c *WsConn, env envelope) {
	ctl.Orch.QueueLeave(c.peerID)
	ctl.sendAck(c, env, map[string]any{"left": true})
}
