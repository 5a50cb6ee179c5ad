package signal

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/huddle-dev/huddle/internal/domain"
)

func TestToAckErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{domain.ErrSessionNotFound, "not_found"},
		{domain.ErrTransportNotFound, "not_found"},
		{domain.ErrProducerNotFound, "not_found"},
		{domain.ErrNotInSession, "not_found"},
		{domain.ErrConsumeRejected, "rejected"},
		{domain.ErrShareInUse, "rejected"},
		{domain.ErrShareNotOwner, "rejected"},
		{domain.ErrUnauthorized, "unauthorized"},
		{fmt.Errorf("wrapped: %w", domain.ErrConsumeRejected), "rejected"},
		{fmt.Errorf("boom"), "internal"},
	}
	for _, c := range cases {
		require.Equal(t, c.code, toAckError(c.err).Code, c.err.Error())
	}
}

func TestGuestAllowed(t *testing.T) {
	require.True(t, guestAllowed("randomChat:join"))
	require.True(t, guestAllowed("randomChat:next"))
	require.True(t, guestAllowed("joinRoom"))
	require.True(t, guestAllowed("consume"))
	require.False(t, guestAllowed("somethingElse"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow("p1"))
	}
	require.False(t, rl.Allow("p1"))

	// other connections have their own window
	require.True(t, rl.Allow("p2"))

	rl.Forget("p1")
	require.True(t, rl.Allow("p1"))
}
