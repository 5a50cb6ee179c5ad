package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/huddle-dev/huddle/internal/domain"
)

func TestShareSingleOwner(t *testing.T) {
	a := NewShareArbitrator()

	st, err := a.Request("room", "p1", "u1", "alice")
	require.NoError(t, err)
	require.Equal(t, domain.PeerID("p1"), st.PeerID)

	owner, err := a.Request("room", "p2", "u2", "bob")
	require.ErrorIs(t, err, domain.ErrShareInUse)
	require.Equal(t, domain.PeerID("p1"), owner.PeerID)

	// same peer re-requesting keeps the claim
	_, err = a.Request("room", "p1", "u1", "alice")
	require.NoError(t, err)
}

func TestShareBindAndStop(t *testing.T) {
	a := NewShareArbitrator()
	_, err := a.Request("room", "p1", "u1", "alice")
	require.NoError(t, err)

	_, err = a.Bind("room", "p2", "prod-1", "")
	require.ErrorIs(t, err, domain.ErrShareNotOwner)

	st, err := a.Bind("room", "p1", "prod-1", "prod-2")
	require.NoError(t, err)
	require.Equal(t, "prod-1", st.VideoProducerID)
	require.Equal(t, "prod-2", st.AudioProducerID)

	_, err = a.Stop("room", "p2")
	require.ErrorIs(t, err, domain.ErrShareNotOwner)

	st, err = a.Stop("room", "p1")
	require.NoError(t, err)
	require.Equal(t, "prod-1", st.VideoProducerID)

	_, ok := a.State("room")
	require.False(t, ok)
}

func TestShareRelease(t *testing.T) {
	a := NewShareArbitrator()
	_, _ = a.Request("room", "p1", "u1", "alice")

	_, ok := a.Release("room", "p2")
	require.False(t, ok)
	_, ok = a.State("room")
	require.True(t, ok)

	st, ok := a.Release("room", "p1")
	require.True(t, ok)
	require.Equal(t, domain.PeerID("p1"), st.PeerID)
	_, ok = a.State("room")
	require.False(t, ok)
}

func TestShareConcurrentRequestsSingleWinner(t *testing.T) {
	a := NewShareArbitrator()

	var wg sync.WaitGroup
	wins := make(chan domain.PeerID, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pid := domain.PeerID(fmt.Sprintf("p%d", i))
			if _, err := a.Request("room", pid, domain.UserID(pid), "n"); err == nil {
				wins <- pid
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []domain.PeerID
	for w := range wins {
		winners = append(winners, w)
	}
	require.Len(t, winners, 1)

	st, ok := a.State("room")
	require.True(t, ok)
	require.Equal(t, winners[0], st.PeerID)
}
