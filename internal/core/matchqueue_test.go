package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/huddle-dev/huddle/internal/domain"
)

func peer(user, conn string) MatchPeer {
	return MatchPeer{UserID: domain.UserID(user), ConnID: domain.PeerID(conn), Name: user}
}

func TestEnqueueMatchesFirstEligible(t *testing.T) {
	q := NewMatchQueue()

	require.Nil(t, q.Enqueue(peer("alice", "c1")))
	require.Equal(t, 1, q.Len())

	m := q.Enqueue(peer("bob", "c2"))
	require.NotNil(t, m)
	require.Equal(t, 0, q.Len())
	require.True(t, strings.HasPrefix(string(m.SessionID), "huddle-match:"))
	require.Equal(t, domain.UserID("alice"), m.A.UserID)
	require.Equal(t, domain.UserID("bob"), m.B.UserID)

	sid, ok := q.SessionOf("alice")
	require.True(t, ok)
	require.Equal(t, m.SessionID, sid)
}

func TestEnqueueSameUserTwice(t *testing.T) {
	q := NewMatchQueue()

	require.Nil(t, q.Enqueue(peer("alice", "c1")))
	require.Nil(t, q.Enqueue(peer("alice", "c2")))
	require.Equal(t, 1, q.Len())

	// the refreshed entry carries the newest connection id
	m := q.Enqueue(peer("bob", "c3"))
	require.NotNil(t, m)
	require.Equal(t, domain.PeerID("c2"), m.A.ConnID)
}

func TestEnqueueNeverMatchesSelf(t *testing.T) {
	q := NewMatchQueue()
	require.Nil(t, q.Enqueue(peer("alice", "c1")))
	require.Nil(t, q.Enqueue(peer("alice", "c1")))
	require.Equal(t, 1, q.Len())
}

func TestEndSessionClearsIndices(t *testing.T) {
	q := NewMatchQueue()
	q.Enqueue(peer("alice", "c1"))
	m := q.Enqueue(peer("bob", "c2"))
	require.NotNil(t, m)

	ended, ok := q.EndSession(m.SessionID)
	require.True(t, ok)
	require.Equal(t, m.SessionID, ended.SessionID)

	_, ok = q.SessionOf("alice")
	require.False(t, ok)
	_, ok = q.SessionOf("bob")
	require.False(t, ok)

	_, ok = q.EndSession(m.SessionID)
	require.False(t, ok)
}

func TestDequeue(t *testing.T) {
	q := NewMatchQueue()
	q.Enqueue(peer("alice", "c1"))
	q.Enqueue(peer("bob", "c2")) // matched, queue empty
	q.Enqueue(peer("carol", "c3"))

	require.False(t, q.DequeueByConn("c1"))
	require.True(t, q.DequeueByConn("c3"))
	require.Equal(t, 0, q.Len())

	q.Enqueue(peer("dave", "c4"))
	require.True(t, q.DequeueByUser("dave"))
	require.False(t, q.DequeueByUser("dave"))
}

func TestPartnerAndUpdateConn(t *testing.T) {
	q := NewMatchQueue()
	q.Enqueue(peer("alice", "c1"))
	m := q.Enqueue(peer("bob", "c2"))
	require.NotNil(t, m)

	p, ok := q.Partner(m.SessionID, "alice")
	require.True(t, ok)
	require.Equal(t, domain.UserID("bob"), p.UserID)

	q.UpdateConn("bob", "c9")
	p, _ = q.Partner(m.SessionID, "alice")
	require.Equal(t, domain.PeerID("c9"), p.ConnID)
}
