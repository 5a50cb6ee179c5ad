package app

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	mediasoup "github.com/jiyeyuran/mediasoup-go/v2"
	"github.com/stretchr/testify/require"

	"github.com/huddle-dev/huddle/internal/core"
	"github.com/huddle-dev/huddle/internal/domain"
	"github.com/huddle-dev/huddle/internal/media/mediatest"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
}

func (c *fakeConn) TrySend(data []byte) error {
	c.mu.Lock()
	c.msgs = append(c.msgs, data)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) events(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var types []string
	for _, m := range c.msgs {
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, sonic.Unmarshal(m, &env))
		types = append(types, env.Type)
	}
	return types
}

func (c *fakeConn) eventData(t *testing.T, typ string) []byte {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.msgs {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, sonic.Unmarshal(m, &env))
		if env.Type == typ {
			return env.Data
		}
	}
	t.Fatalf("no %s event received", typ)
	return nil
}

func (c *fakeConn) has(t *testing.T, typ string) bool {
	for _, got := range c.events(t) {
		if got == typ {
			return true
		}
	}
	return false
}

func newTestOrch(engine *mediatest.Engine) *Orchestrator {
	return NewOrchestrator(core.NewRegistry(engine), NewHub(), nil)
}

func join(t *testing.T, o *Orchestrator, peer, user, name string) (*fakeConn, *SessionSnapshot) {
	t.Helper()
	c := &fakeConn{}
	o.RegisterPeer(domain.PeerID(peer), domain.UserID(user), name, c)
	snap, err := o.Join(domain.PeerID(peer), "room")
	require.NoError(t, err)
	return c, snap
}

func TestJoinSnapshotAndBroadcast(t *testing.T) {
	o := newTestOrch(mediatest.NewEngine())

	alice, snap := join(t, o, "p1", "u1", "alice")
	require.Empty(t, snap.Peers)

	reply, err := o.CreateTransport("p1", true, true)
	require.NoError(t, err)
	_, err = o.Produce("p1", reply.ID, mediasoup.MediaKindAudio, &mediasoup.RtpParameters{}, false)
	require.NoError(t, err)

	_, snap2 := join(t, o, "p2", "u2", "bob")
	require.Len(t, snap2.Peers, 1)
	require.Equal(t, domain.PeerID("p1"), snap2.Peers[0].PeerID)
	require.Equal(t, domain.UserID("u1"), snap2.Peers[0].UserID)
	require.Equal(t, "alice", snap2.Peers[0].Name)
	require.Len(t, snap2.Producers, 1)
	require.Equal(t, domain.PeerID("p1"), snap2.Producers[0].PeerID)
	require.Equal(t, domain.UserID("u1"), snap2.Producers[0].UserID)
	require.Equal(t, "alice", snap2.Producers[0].Name)

	var joined peerJoinedEvent
	require.NoError(t, sonic.Unmarshal(alice.eventData(t, EvPeerJoined), &joined))
	require.Equal(t, domain.PeerID("p2"), joined.PeerID)
	require.Equal(t, domain.UserID("u2"), joined.UserID)
	require.Equal(t, "bob", joined.Name)
}

func TestJoinEvictsSameUser(t *testing.T) {
	o := newTestOrch(mediatest.NewEngine())

	first, _ := join(t, o, "p1", "u1", "alice")
	reply, err := o.CreateTransport("p1", true, true)
	require.NoError(t, err)
	_, err = o.Produce("p1", reply.ID, mediasoup.MediaKindAudio, &mediasoup.RtpParameters{}, false)
	require.NoError(t, err)

	// same user, new connection
	second := &fakeConn{}
	o.RegisterPeer("p2", "u1", "alice", second)
	snap, err := o.Join("p2", "room")
	require.NoError(t, err)

	require.True(t, first.has(t, EvSessionReplaced))
	require.True(t, first.closed)

	// old peer's state must be gone before the snapshot is taken
	require.Empty(t, snap.Peers)
	require.Empty(t, snap.Producers)

	s, ok := o.Registry.Get("room")
	require.True(t, ok)
	require.Equal(t, 1, s.MemberCount())
}

func TestDisconnectEmptiesSession(t *testing.T) {
	o := newTestOrch(mediatest.NewEngine())

	_, _ = join(t, o, "p1", "u1", "alice")
	send, err := o.CreateTransport("p1", true, true)
	require.NoError(t, err)
	recv, err := o.CreateTransport("p1", false, true)
	require.NoError(t, err)
	require.NotEqual(t, send.ID, recv.ID)

	_, err = o.Produce("p1", send.ID, mediasoup.MediaKindAudio, &mediasoup.RtpParameters{}, false)
	require.NoError(t, err)
	_, err = o.ProduceData("p1", send.ID, &mediasoup.SctpStreamParameters{}, "chat", "")
	require.NoError(t, err)

	o.Disconnect("p1")

	s, ok := o.Registry.Get("room")
	require.True(t, ok) // group sessions are not reclaimed
	require.True(t, s.Empty())
	_, ok = o.Peer("p1")
	require.False(t, ok)
}

func TestCleanupBroadcasts(t *testing.T) {
	o := newTestOrch(mediatest.NewEngine())

	_, _ = join(t, o, "p1", "u1", "alice")
	send, err := o.CreateTransport("p1", true, true)
	require.NoError(t, err)
	_, err = o.Produce("p1", send.ID, mediasoup.MediaKindAudio, &mediasoup.RtpParameters{}, false)
	require.NoError(t, err)

	bob, _ := join(t, o, "p2", "u2", "bob")
	o.Leave("p1")

	require.True(t, bob.has(t, EvPeerLeft))
	require.True(t, bob.has(t, EvProducerClosed))
}

func TestConsume(t *testing.T) {
	o := newTestOrch(mediatest.NewEngine())

	_, _ = join(t, o, "p1", "u1", "alice")
	send, err := o.CreateTransport("p1", true, true)
	require.NoError(t, err)
	producerID, err := o.Produce("p1", send.ID, mediasoup.MediaKindAudio, &mediasoup.RtpParameters{}, false)
	require.NoError(t, err)

	_, _ = join(t, o, "p2", "u2", "bob")

	// consuming without a recv transport fails
	_, err = o.Consume("p2", producerID, &mediasoup.RtpCapabilities{})
	require.ErrorIs(t, err, domain.ErrTransportNotFound)

	_, err = o.CreateTransport("p2", false, true)
	require.NoError(t, err)

	reply, err := o.Consume("p2", producerID, &mediasoup.RtpCapabilities{})
	require.NoError(t, err)
	require.Equal(t, producerID, reply.ProducerID)
}

func TestConsumeRejected(t *testing.T) {
	engine := mediatest.NewEngine()
	engine.ConsumeOK = func(string, *mediasoup.RtpCapabilities) bool { return false }
	o := newTestOrch(engine)

	_, _ = join(t, o, "p1", "u1", "alice")
	send, err := o.CreateTransport("p1", true, true)
	require.NoError(t, err)
	producerID, err := o.Produce("p1", send.ID, mediasoup.MediaKindVideo, &mediasoup.RtpParameters{}, false)
	require.NoError(t, err)

	_, _ = join(t, o, "p2", "u2", "bob")
	_, err = o.CreateTransport("p2", false, true)
	require.NoError(t, err)

	_, err = o.Consume("p2", producerID, &mediasoup.RtpCapabilities{})
	require.ErrorIs(t, err, domain.ErrConsumeRejected)
}

func TestSetMuted(t *testing.T) {
	o := newTestOrch(mediatest.NewEngine())

	_, _ = join(t, o, "p1", "u1", "alice")
	send, err := o.CreateTransport("p1", true, true)
	require.NoError(t, err)
	producerID, err := o.Produce("p1", send.ID, mediasoup.MediaKindAudio, &mediasoup.RtpParameters{}, false)
	require.NoError(t, err)

	bob, _ := join(t, o, "p2", "u2", "bob")

	secondID, err := o.Produce("p1", send.ID, mediasoup.MediaKindVideo, &mediasoup.RtpParameters{}, false)
	require.NoError(t, err)

	var created newProducerEvent
	require.NoError(t, sonic.Unmarshal(bob.eventData(t, EvNewProducer), &created))
	require.Equal(t, secondID, created.ProducerID)
	require.Equal(t, domain.UserID("u1"), created.UserID)
	require.Equal(t, "alice", created.Name)

	require.NoError(t, o.SetMuted("p1", true))
	var mutedEv producerMutedEvent
	require.NoError(t, sonic.Unmarshal(bob.eventData(t, EvProducerMuted), &mutedEv))
	require.NotEmpty(t, mutedEv.ProducerID)
	require.Equal(t, domain.UserID("u1"), mutedEv.UserID)
	require.True(t, mutedEv.Muted)

	s, _ := o.Registry.Get("room")
	producer, ok := s.Producer(producerID)
	require.True(t, ok)
	require.True(t, producer.Paused())

	require.NoError(t, o.SetMuted("p1", false))
	require.False(t, producer.Paused())
}

func TestConcurrentSameUserJoins(t *testing.T) {
	o := newTestOrch(mediatest.NewEngine())

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		peer := domain.PeerID(fmt.Sprintf("p%d", i))
		o.RegisterPeer(peer, "u1", "alice", &fakeConn{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Join(peer, "room")
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	// every racer but one was evicted before its successor was admitted
	s, ok := o.Registry.Get("room")
	require.True(t, ok)
	require.Equal(t, 1, s.MemberCount())
}

func TestShareLifecycle(t *testing.T) {
	o := newTestOrch(mediatest.NewEngine())

	_, _ = join(t, o, "p1", "u1", "alice")
	bob, _ := join(t, o, "p2", "u2", "bob")

	st, err := o.ShareRequest("p1")
	require.NoError(t, err)
	require.Equal(t, domain.PeerID("p1"), st.PeerID)
	require.True(t, bob.has(t, EvShareState))

	// second requester is rejected and told who owns it
	owner, err := o.ShareRequest("p2")
	require.ErrorIs(t, err, domain.ErrShareInUse)
	require.Equal(t, domain.PeerID("p1"), owner.PeerID)

	_, err = o.ShareBind("p1", "prod-screen", "")
	require.NoError(t, err)
	require.True(t, bob.has(t, EvShareStarted))

	require.NoError(t, o.ShareStop("p1"))
	require.True(t, bob.has(t, EvShareStopped))

	_, ok := o.Share.State("room")
	require.False(t, ok)
}

func TestShareReleasedOnDisconnect(t *testing.T) {
	o := newTestOrch(mediatest.NewEngine())

	_, _ = join(t, o, "p1", "u1", "alice")
	bob, _ := join(t, o, "p2", "u2", "bob")

	_, err := o.ShareRequest("p1")
	require.NoError(t, err)

	o.Disconnect("p1")

	require.True(t, bob.has(t, EvShareStopped))
	_, ok := o.Share.State("room")
	require.False(t, ok)

	// the slot is free for the next claimant
	_, err = o.ShareRequest("p2")
	require.NoError(t, err)
}

func TestSnapshotIncludesShare(t *testing.T) {
	o := newTestOrch(mediatest.NewEngine())

	_, _ = join(t, o, "p1", "u1", "alice")
	_, err := o.ShareRequest("p1")
	require.NoError(t, err)

	_, snap := join(t, o, "p2", "u2", "bob")
	require.NotNil(t, snap.ScreenShare)
	require.Equal(t, domain.PeerID("p1"), snap.ScreenShare.PeerID)
}
