package signal

import (
	"strings"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/huddle-dev/huddle/internal/domain"
)

func (ctl *Controller) handleJoinRoom(c *WsConn, env envelope) {
	var p struct {
		SessionID string `json:"sessionId"`
		Name      string `json:"name,omitempty"`
	}
	if err := sonic.Unmarshal(env.Data, &p); err != nil || p.SessionID == "" {
		ctl.sendErr(c, env, domain.ErrSessionNotFound)
		return
	}

	// guests only ever see their match rooms
	if c.guest && !strings.HasPrefix(p.SessionID, "huddle-match:") {
		ctl.sendErr(c, env, domain.ErrUnauthorized)
		return
	}

	if p.Name != "" {
		if err := domain.ValidateName(p.Name); err != nil {
			ctl.sendErr(c, env, err)
			return
		}
		if peer, ok := ctl.Orch.Peer(c.peerID); ok {
			peer.Name = p.Name
		}
	}

	snap, err := ctl.Orch.Join(c.peerID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendErr(c, env, err)
		return
	}

	log.Info().
		Str("module", "signal").
		Str("peer_id", string(c.peerID)).
		Str("session_id", p.SessionID).
		Msg("join")
	ctl.sendAck(c, env, snap)
}

func (ctl *Controller) handleLeaveRoom(c *WsConn, env envelope) {
	log.Info().Str("module", "signal").Str("peer_id", string(c.peerID)).Msg("leave")
	ctl.Orch.Leave(c.peerID)
	ctl.sendAck(c, env, map[string]any{"left": true})
}
