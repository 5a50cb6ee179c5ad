package core

import (
	"sync"

	"github.com/huddle-dev/huddle/internal/domain"
)

// ShareState is the per-session screen share claim. The producer ids
// stay empty between Request and Bind.
type ShareState struct {
	PeerID          domain.PeerID `json:"peerId"`
	UserID          domain.UserID `json:"userId"`
	Name            string        `json:"name"`
	VideoProducerID string        `json:"videoProducerId,omitempty"`
	AudioProducerID string        `json:"audioProducerId,omitempty"`
}

// ShareArbitrator grants at most one screen share per session. A single
// lock over the map makes every claim an atomic check-and-set; no
// engine call ever happens under it.
type ShareArbitrator struct {
	mu     sync.Mutex
	shares map[domain.SessionID]*ShareState
}

func NewShareArbitrator() *ShareArbitrator {
	return &ShareArbitrator{shares: make(map[domain.SessionID]*ShareState)}
}

// Request claims the share slot. Re-requests by the current owner keep
// the claim. A taken slot returns ErrShareInUse plus the owner.
func (a *ShareArbitrator) Request(sessionID domain.SessionID, peerID domain.PeerID, userID domain.UserID, name string) (*ShareState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cur, ok := a.shares[sessionID]; ok {
		if cur.PeerID == peerID {
			return cur, nil
		}
		return cur, domain.ErrShareInUse
	}
	st := &ShareState{PeerID: peerID, UserID: userID, Name: name}
	a.shares[sessionID] = st
	return st, nil
}

// Bind attaches the producer ids to an existing claim by the same peer.
// Either id may be empty, screen audio is optional.
func (a *ShareArbitrator) Bind(sessionID domain.SessionID, peerID domain.PeerID, videoProducerID, audioProducerID string) (*ShareState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cur, ok := a.shares[sessionID]
	if !ok || cur.PeerID != peerID {
		return cur, domain.ErrShareNotOwner
	}
	cur.VideoProducerID = videoProducerID
	cur.AudioProducerID = audioProducerID
	return cur, nil
}

// Stop releases the claim if peerID owns it.
func (a *ShareArbitrator) Stop(sessionID domain.SessionID, peerID domain.PeerID) (*ShareState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cur, ok := a.shares[sessionID]
	if !ok || cur.PeerID != peerID {
		return cur, domain.ErrShareNotOwner
	}
	delete(a.shares, sessionID)
	return cur, nil
}

// Release drops the claim held by peerID, if any. Used on disconnect.
func (a *ShareArbitrator) Release(sessionID domain.SessionID, peerID domain.PeerID) (*ShareState, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cur, ok := a.shares[sessionID]
	if !ok || cur.PeerID != peerID {
		return nil, false
	}
	delete(a.shares, sessionID)
	return cur, true
}

func (a *ShareArbitrator) State(sessionID domain.SessionID) (*ShareState, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cur, ok := a.shares[sessionID]
	return cur, ok
}
