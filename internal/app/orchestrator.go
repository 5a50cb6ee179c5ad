package app

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/huddle-dev/huddle/internal/config"
	"github.com/huddle-dev/huddle/internal/core"
	"github.com/huddle-dev/huddle/internal/domain"
	"github.com/huddle-dev/huddle/internal/metrics"
)

// Orchestrator ties the registry, arbitrator, queue and hub together.
// It is the only writer of peer membership.
type Orchestrator struct {
	Registry   *core.Registry
	Share      *core.ShareArbitrator
	Queue      *core.MatchQueue
	Hub        *Hub
	ICEServers []webrtc.ICEServer

	mu    sync.RWMutex
	peers map[domain.PeerID]*core.Peer

	joins keyedMutex
}

func NewOrchestrator(registry *core.Registry, hub *Hub, ice []webrtc.ICEServer) *Orchestrator {
	return &Orchestrator{
		Registry:   registry,
		Share:      core.NewShareArbitrator(),
		Queue:      core.NewMatchQueue(),
		Hub:        hub,
		ICEServers: ice,
		peers:      make(map[domain.PeerID]*core.Peer),
	}
}

// RelayServers builds the ICE server list handed to clients. TURN from
// config when present, Google STUN as the fallback.
func RelayServers(cfg config.TurnConfig) []webrtc.ICEServer {
	if len(cfg.URIs) > 0 {
		return []webrtc.ICEServer{{
			URLs:       cfg.URIs,
			Username:   cfg.Username,
			Credential: cfg.Credential,
		}}
	}
	return []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
}

// RegisterPeer creates the bookkeeping record for a new connection.
func (o *Orchestrator) RegisterPeer(id domain.PeerID, userID domain.UserID, name string, conn Conn) *core.Peer {
	p := core.NewPeer(id, userID, name)
	o.mu.Lock()
	o.peers[id] = p
	o.mu.Unlock()
	o.Hub.Register(id, conn)
	o.Queue.UpdateConn(userID, id)
	return p
}

func (o *Orchestrator) Peer(id domain.PeerID) (*core.Peer, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.peers[id]
	return p, ok
}

// Join puts the peer into the session. A second connection by the same
// user evicts the first one completely before the new membership is
// recorded, then the snapshot is taken, then the others are notified.
func (o *Orchestrator) Join(peerID domain.PeerID, sessionID domain.SessionID) (*SessionSnapshot, error) {
	p, ok := o.Peer(peerID)
	if !ok {
		return nil, domain.ErrNotInSession
	}

	unlock := o.joins.lock(string(sessionID) + "/" + string(p.UserID))
	defer unlock()

	s, err := o.Registry.GetOrCreate(sessionID)
	if err != nil {
		return nil, err
	}

	if old, ok := s.MemberByUser(p.UserID); ok && old.ID != peerID {
		log.Info().
			Str("module", "app.orch").
			Str("session_id", string(sessionID)).
			Str("old_peer", string(old.ID)).
			Str("new_peer", string(peerID)).
			Msg("evicting replaced peer")
		o.Hub.Send(old.ID, push(EvSessionReplaced, nil))
		o.cleanupPeer(old)
		o.Hub.CloseConn(old.ID)
	}

	// leaving a previous session is implicit
	rejoining := p.SessionID() == sessionID
	if p.SessionID() != "" && !rejoining {
		o.cleanupPeer(p)
	}

	snap := o.snapshot(s, peerID)

	p.SetSession(sessionID)
	s.AddMember(p)
	if !rejoining {
		metrics.ConnectedPeers.Inc()
	}
	metrics.ActiveSessions.Set(float64(o.Registry.Len()))

	o.broadcast(s, peerID, push(EvPeerJoined, peerJoinedEvent{
		PeerID: peerID,
		UserID: p.UserID,
		Name:   p.Name,
	}))

	log.Info().
		Str("module", "app.orch").
		Str("session_id", string(sessionID)).
		Str("peer_id", string(peerID)).
		Msg("peer joined")
	return snap, nil
}

func (o *Orchestrator) snapshot(s *core.Session, self domain.PeerID) *SessionSnapshot {
	snap := &SessionSnapshot{
		SessionID:     s.ID,
		Peers:         make([]PeerInfo, 0),
		Producers:     s.ProducerSnapshots(),
		DataProducers: s.DataProducerSnapshots(),
	}
	for _, m := range s.Members() {
		if m.ID == self {
			continue
		}
		snap.Peers = append(snap.Peers, PeerInfo{PeerID: m.ID, UserID: m.UserID, Name: m.Name})
	}
	if st, ok := o.Share.State(s.ID); ok {
		snap.ScreenShare = st
	}
	return snap
}

// Leave removes the peer from its session on explicit request.
func (o *Orchestrator) Leave(peerID domain.PeerID) {
	if p, ok := o.Peer(peerID); ok {
		o.cleanupPeer(p)
	}
}

// Disconnect runs when the signaling connection dies: queue exit, match
// teardown, session cleanup, hub removal.
func (o *Orchestrator) Disconnect(peerID domain.PeerID) {
	p, ok := o.Peer(peerID)
	if !ok {
		o.Hub.Unregister(peerID)
		return
	}

	o.Queue.DequeueByConn(peerID)
	metrics.QueueDepth.Set(float64(o.Queue.Len()))
	if sid, ok := o.Queue.SessionOf(p.UserID); ok {
		o.endMatch(sid, p.UserID)
	}

	o.cleanupPeer(p)

	o.mu.Lock()
	delete(o.peers, peerID)
	o.mu.Unlock()
	o.Hub.Unregister(peerID)
}

// cleanupPeer releases everything the peer owns inside its session.
// Each step is isolated: one failing close never skips the rest.
func (o *Orchestrator) cleanupPeer(p *core.Peer) {
	sessionID := p.SessionID()
	if sessionID == "" {
		p.Reset()
		return
	}
	s, ok := o.Registry.Get(sessionID)
	if !ok {
		p.Reset()
		return
	}

	o.broadcast(s, p.ID, push(EvPeerLeft, peerLeftEvent{PeerID: p.ID}))

	if st, released := o.Share.Release(sessionID, p.ID); released {
		o.broadcast(s, p.ID, push(EvShareStopped, shareStoppedEvent{PeerID: st.PeerID}))
		o.broadcast(s, p.ID, push(EvShareState, shareStateEvent{Active: false}))
	}

	for _, id := range p.Producers() {
		closeQuietly("producer", id, func() { s.CloseProducer(id) })
		o.broadcast(s, p.ID, push(EvProducerClosed, producerClosedEvent{
			ProducerID: id,
			PeerID:     p.ID,
		}))
	}
	for _, id := range p.Transports() {
		closeQuietly("transport", id, func() { s.CloseTransport(id) })
	}
	for _, id := range p.DataProducers() {
		closeQuietly("data producer", id, func() { s.CloseDataProducer(id) })
		o.broadcast(s, p.ID, push(EvDataProducerClosed, dataProducerClosedEvent{
			DataProducerID: id,
			PeerID:         p.ID,
		}))
	}

	s.RemoveMember(p.ID)
	p.Reset()
	metrics.ConnectedPeers.Dec()

	log.Info().
		Str("module", "app.orch").
		Str("session_id", string(sessionID)).
		Str("peer_id", string(p.ID)).
		Msg("peer cleaned up")
}

// closeQuietly isolates one close step of the cleanup sequence.
func closeQuietly(what, id string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("module", "app.orch").
				Str("resource", what).
				Str("id", id).
				Any("panic", r).
				Msg("close failed")
		}
	}()
	fn()
}

// broadcast pushes the event to every session member except from.
func (o *Orchestrator) broadcast(s *core.Session, from domain.PeerID, v any) {
	for _, m := range s.Members() {
		if m.ID == from {
			continue
		}
		o.Hub.Send(m.ID, v)
	}
}

// keyedMutex serializes joins per (session,user) key so two devices of
// the same user cannot interleave eviction with membership insert.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
