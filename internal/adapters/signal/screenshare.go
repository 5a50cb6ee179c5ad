package signal

import (
	"errors"

	"github.com/bytedance/sonic"

	"github.com/huddle-dev/huddle/internal/domain"
)

func (ctl *Controller) handleShareRequest(c *WsConn, env envelope) {
	st, err := ctl.Orch.ShareRequest(c.peerID)
	if err != nil {
		// the reject carries who holds the slot
		if errors.Is(err, domain.ErrShareInUse) && st != nil && env.RID != "" {
			e := toAckError(err)
			e.Data = st
			ctl.sendJSON(c, ack{Type: "ack", RID: env.RID, Error: e})
			return
		}
		ctl.sendErr(c, env, err)
		return
	}
	ctl.sendAck(c, env, st)
}

func (ctl *Controller) handleShareBind(c *WsConn, env envelope) {
	var p struct {
		VideoProducerID string `json:"videoProducerId"`
		AudioProducerID string `json:"audioProducerId"`
	}
	if err := sonic.Unmarshal(env.Data, &p); err != nil {
		ctl.sendErr(c, env, err)
		return
	}

	st, err := ctl.Orch.ShareBind(c.peerID, p.VideoProducerID, p.AudioProducerID)
	if err != nil {
		ctl.sendErr(c, env, err)
		return
	}
	ctl.sendAck(c, env, st)
}

func (ctl *Controller) handleShareStop(c *WsConn, env envelope) {
	if err := ctl.Orch.ShareStop(c.peerID); err != nil {
		ctl.sendErr(c, env, err)
		return
	}
	ctl.sendAck(c, env, map[string]any{"stopped": true})
}
