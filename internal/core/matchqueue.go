package core

import (
	"sync"

	"github.com/google/uuid"

	"github.com/huddle-dev/huddle/internal/domain"
)

// MatchPeer is one side of a 1:1 match.
type MatchPeer struct {
	UserID domain.UserID
	ConnID domain.PeerID
	Name   string
}

// Match is an active pairing living in an ephemeral session.
type Match struct {
	SessionID domain.SessionID
	A, B      MatchPeer
}

func (m Match) Other(userID domain.UserID) (MatchPeer, bool) {
	switch userID {
	case m.A.UserID:
		return m.B, true
	case m.B.UserID:
		return m.A, true
	}
	return MatchPeer{}, false
}

// MatchQueue pairs waiting users in arrival order. One entry per user:
// re-enqueueing refreshes the connection id instead of queueing twice.
type MatchQueue struct {
	mu        sync.Mutex
	waiting   []MatchPeer
	byUser    map[domain.UserID]domain.SessionID
	bySession map[domain.SessionID]*Match
}

func NewMatchQueue() *MatchQueue {
	return &MatchQueue{
		byUser:    make(map[domain.UserID]domain.SessionID),
		bySession: make(map[domain.SessionID]*Match),
	}
}

// Enqueue adds the user or pairs them with the first eligible waiter.
// A user never matches themselves. The returned match is non-nil when a
// pairing happened.
func (q *MatchQueue) Enqueue(p MatchPeer) *Match {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, w := range q.waiting {
		if w.UserID == p.UserID {
			q.waiting[i].ConnID = p.ConnID
			q.waiting[i].Name = p.Name
			return nil
		}
	}

	for i, w := range q.waiting {
		if w.UserID == p.UserID {
			continue
		}
		q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
		m := &Match{
			SessionID: domain.SessionID("huddle-match:" + uuid.NewString()),
			A:         w,
			B:         p,
		}
		q.byUser[w.UserID] = m.SessionID
		q.byUser[p.UserID] = m.SessionID
		q.bySession[m.SessionID] = m
		return m
	}

	q.waiting = append(q.waiting, p)
	return nil
}

// DequeueByConn drops a waiting entry bound to the connection.
func (q *MatchQueue) DequeueByConn(connID domain.PeerID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiting {
		if w.ConnID == connID {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}

func (q *MatchQueue) DequeueByUser(userID domain.UserID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiting {
		if w.UserID == userID {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}

// EndSession removes the active match and both user index entries.
func (q *MatchQueue) EndSession(sessionID domain.SessionID) (*Match, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	m, ok := q.bySession[sessionID]
	if !ok {
		return nil, false
	}
	delete(q.bySession, sessionID)
	delete(q.byUser, m.A.UserID)
	delete(q.byUser, m.B.UserID)
	return m, true
}

// UpdateConn rebinds a user to a new connection after a reconnect, both
// in the waiting list and in an active match.
func (q *MatchQueue) UpdateConn(userID domain.UserID, connID domain.PeerID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiting {
		if w.UserID == userID {
			q.waiting[i].ConnID = connID
		}
	}
	if sid, ok := q.byUser[userID]; ok {
		if m, ok := q.bySession[sid]; ok {
			if m.A.UserID == userID {
				m.A.ConnID = connID
			} else if m.B.UserID == userID {
				m.B.ConnID = connID
			}
		}
	}
}

func (q *MatchQueue) SessionOf(userID domain.UserID) (domain.SessionID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	sid, ok := q.byUser[userID]
	return sid, ok
}

// Partner returns the other side of an active match.
func (q *MatchQueue) Partner(sessionID domain.SessionID, userID domain.UserID) (MatchPeer, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	m, ok := q.bySession[sessionID]
	if !ok {
		return MatchPeer{}, false
	}
	return m.Other(userID)
}

func (q *MatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}
