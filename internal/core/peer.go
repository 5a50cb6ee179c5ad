package core

import (
	"sync"

	"github.com/huddle-dev/huddle/internal/domain"
)

// Peer is the per-connection bookkeeping record: identity plus the ids
// of every engine resource the connection owns. It never holds engine
// objects or the websocket itself.
type Peer struct {
	ID     domain.PeerID
	UserID domain.UserID
	Name   string

	mu            sync.Mutex
	sessionID     domain.SessionID
	sendTransport string
	recvTransport string
	transports    map[string]struct{}
	producers     map[string]struct{}
	dataProducers map[string]struct{}
}

func NewPeer(id domain.PeerID, userID domain.UserID, name string) *Peer {
	return &Peer{
		ID:            id,
		UserID:        userID,
		Name:          name,
		transports:    make(map[string]struct{}),
		producers:     make(map[string]struct{}),
		dataProducers: make(map[string]struct{}),
	}
}

func (p *Peer) SessionID() domain.SessionID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

func (p *Peer) SetSession(id domain.SessionID) {
	p.mu.Lock()
	p.sessionID = id
	p.mu.Unlock()
}

// TrackTransport records ownership. The previous transport in the same
// direction slot stays tracked until it is closed.
func (p *Peer) TrackTransport(id string, sending bool) {
	p.mu.Lock()
	p.transports[id] = struct{}{}
	if sending {
		p.sendTransport = id
	} else {
		p.recvTransport = id
	}
	p.mu.Unlock()
}

func (p *Peer) RecvTransport() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recvTransport, p.recvTransport != ""
}

func (p *Peer) SendTransport() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sendTransport, p.sendTransport != ""
}

func (p *Peer) TrackProducer(id string) {
	p.mu.Lock()
	p.producers[id] = struct{}{}
	p.mu.Unlock()
}

func (p *Peer) UntrackProducer(id string) {
	p.mu.Lock()
	delete(p.producers, id)
	p.mu.Unlock()
}

func (p *Peer) TrackDataProducer(id string) {
	p.mu.Lock()
	p.dataProducers[id] = struct{}{}
	p.mu.Unlock()
}

func (p *Peer) Transports() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return keys(p.transports)
}

func (p *Peer) Producers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return keys(p.producers)
}

func (p *Peer) DataProducers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return keys(p.dataProducers)
}

// Reset clears session membership and owned resource ids after cleanup.
func (p *Peer) Reset() {
	p.mu.Lock()
	p.sessionID = ""
	p.sendTransport = ""
	p.recvTransport = ""
	p.transports = make(map[string]struct{})
	p.producers = make(map[string]struct{})
	p.dataProducers = make(map[string]struct{})
	p.mu.Unlock()
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
