package app

import (
	"github.com/rs/zerolog/log"

	"github.com/huddle-dev/huddle/internal/core"
	"github.com/huddle-dev/huddle/internal/domain"
	"github.com/huddle-dev/huddle/internal/metrics"
)

// QueueJoin enters the user into the matchmaking queue. An active match
// is ended first, so "join" doubles as "find me someone new".
func (o *Orchestrator) QueueJoin(peerID domain.PeerID) error {
	p, ok := o.Peer(peerID)
	if !ok {
		return domain.ErrNotInSession
	}

	if sid, ok := o.Queue.SessionOf(p.UserID); ok {
		o.endMatch(sid, p.UserID)
	}

	m := o.Queue.Enqueue(core.MatchPeer{
		UserID: p.UserID,
		ConnID: peerID,
		Name:   p.Name,
	})
	metrics.QueueDepth.Set(float64(o.Queue.Len()))

	if m == nil {
		o.Hub.Send(peerID, push(EvWaiting, nil))
		return nil
	}

	metrics.MatchesMade.Inc()
	log.Info().
		Str("module", "app.randomchat").
		Str("session_id", string(m.SessionID)).
		Str("user_a", string(m.A.UserID)).
		Str("user_b", string(m.B.UserID)).
		Msg("matched")

	o.Hub.Send(m.A.ConnID, push(EvMatched, matchedEvent{
		SessionID: m.SessionID,
		Partner:   PartnerInfo{UserID: m.B.UserID, Name: m.B.Name},
	}))
	o.Hub.Send(m.B.ConnID, push(EvMatched, matchedEvent{
		SessionID: m.SessionID,
		Partner:   PartnerInfo{UserID: m.A.UserID, Name: m.A.Name},
	}))
	return nil
}

// QueueLeave exits the queue and ends an active match, if any.
func (o *Orchestrator) QueueLeave(peerID domain.PeerID) {
	p, ok := o.Peer(peerID)
	if !ok {
		return
	}
	o.Queue.DequeueByUser(p.UserID)
	metrics.QueueDepth.Set(float64(o.Queue.Len()))

	if sid, ok := o.Queue.SessionOf(p.UserID); ok {
		o.endMatch(sid, p.UserID)
	}
}

// QueueNext ends the current match and immediately re-enqueues.
func (o *Orchestrator) QueueNext(peerID domain.PeerID) error {
	o.QueueLeave(peerID)
	return o.QueueJoin(peerID)
}

// endMatch tears down an ephemeral match session: the partner gets a
// notification, both memberships are cleaned, and the session's router
// is destroyed so a router never outlives its match.
func (o *Orchestrator) endMatch(sessionID domain.SessionID, leaving domain.UserID) {
	m, ok := o.Queue.EndSession(sessionID)
	if !ok {
		return
	}

	if partner, ok := m.Other(leaving); ok {
		o.Hub.Send(partner.ConnID, push(EvPartnerLeft, nil))
	}

	for _, side := range []core.MatchPeer{m.A, m.B} {
		if p, ok := o.Peer(side.ConnID); ok && p.SessionID() == sessionID {
			o.cleanupPeer(p)
		}
	}

	o.Registry.Destroy(sessionID)
	metrics.ActiveSessions.Set(float64(o.Registry.Len()))

	log.Info().
		Str("module", "app.randomchat").
		Str("session_id", string(sessionID)).
		Msg("match ended")
}
