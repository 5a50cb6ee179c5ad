package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/huddle-dev/huddle/internal/media"
	"github.com/huddle-dev/huddle/internal/media/mediatest"
)

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry(mediatest.NewEngine())

	s1, err := r.GetOrCreate("room")
	require.NoError(t, err)
	s2, err := r.GetOrCreate("room")
	require.NoError(t, err)
	require.Same(t, s1, s2)
	require.Equal(t, 1, r.Len())
}

func TestRegistryConcurrentCreate(t *testing.T) {
	r := NewRegistry(mediatest.NewEngine())

	var wg sync.WaitGroup
	sessions := make([]*Session, 8)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.GetOrCreate("room")
			require.NoError(t, err)
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	for _, s := range sessions[1:] {
		require.Same(t, sessions[0], s)
	}
	require.Equal(t, 1, r.Len())
}

func TestRegistryTransportIndex(t *testing.T) {
	r := NewRegistry(mediatest.NewEngine())

	s, err := r.GetOrCreate("room")
	require.NoError(t, err)
	info, err := s.CreateTransport(media.TransportOptions{})
	require.NoError(t, err)
	r.TrackTransport(info.ID, s.ID)

	got, ok := r.SessionByTransport(info.ID)
	require.True(t, ok)
	require.Same(t, s, got)

	// closing the transport sweeps the index entry
	s.CloseTransport(info.ID)
	_, ok = r.SessionByTransport(info.ID)
	require.False(t, ok)
}

func TestRegistryDestroy(t *testing.T) {
	r := NewRegistry(mediatest.NewEngine())

	s, err := r.GetOrCreate("room")
	require.NoError(t, err)
	info, err := s.CreateTransport(media.TransportOptions{})
	require.NoError(t, err)
	r.TrackTransport(info.ID, s.ID)

	r.Destroy("room")
	_, ok := r.Get("room")
	require.False(t, ok)
	_, ok = r.SessionByTransport(info.ID)
	require.False(t, ok)
	require.True(t, s.Empty())

	// destroying twice is fine
	r.Destroy("room")
}
