package core

import (
	"fmt"
	"sync"

	mediasoup "github.com/jiyeyuran/mediasoup-go/v2"
	"github.com/rs/zerolog/log"

	"github.com/huddle-dev/huddle/internal/domain"
	"github.com/huddle-dev/huddle/internal/media"
)

type producerEntry struct {
	producer media.Producer
	owner    domain.PeerID
}

type dataProducerEntry struct {
	producer media.DataProducer
	owner    domain.PeerID
}

// Session owns one router and every engine resource created inside it,
// keyed by id. All engine calls happen outside the session lock; the
// precondition is re-checked before the result is stored.
type Session struct {
	ID     domain.SessionID
	router media.Router

	// set by the registry to maintain the transport reverse index
	onTransportGone func(transportID string)

	mu            sync.Mutex
	transports    map[string]media.Transport
	producers     map[string]producerEntry
	consumers     map[string]media.Consumer
	dataProducers map[string]dataProducerEntry
	dataConsumers map[string]media.DataConsumer
	members       map[domain.PeerID]*Peer
}

func NewSession(id domain.SessionID, router media.Router) *Session {
	return &Session{
		ID:            id,
		router:        router,
		transports:    make(map[string]media.Transport),
		producers:     make(map[string]producerEntry),
		consumers:     make(map[string]media.Consumer),
		dataProducers: make(map[string]dataProducerEntry),
		dataConsumers: make(map[string]media.DataConsumer),
		members:       make(map[domain.PeerID]*Peer),
	}
}

func (s *Session) RouterCapabilities() *mediasoup.RtpCapabilities {
	return s.router.RTPCapabilities()
}

// CreateTransport makes a new server-side transport and tracks it.
func (s *Session) CreateTransport(opts media.TransportOptions) (media.TransportInfo, error) {
	transport, info, err := s.router.CreateTransport(opts)
	if err != nil {
		return media.TransportInfo{}, fmt.Errorf("create transport: %w", err)
	}

	id := transport.ID()
	transport.OnClose(func() {
		s.mu.Lock()
		delete(s.transports, id)
		s.mu.Unlock()
		if s.onTransportGone != nil {
			s.onTransportGone(id)
		}
	})

	s.mu.Lock()
	s.transports[id] = transport
	s.mu.Unlock()
	return info, nil
}

func (s *Session) transport(id string) (media.Transport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transports[id]
	if !ok {
		return nil, domain.ErrTransportNotFound
	}
	return t, nil
}

func (s *Session) ConnectTransport(transportID string, dtls *mediasoup.DtlsParameters) error {
	t, err := s.transport(transportID)
	if err != nil {
		return err
	}
	return t.Connect(dtls)
}

// Produce creates a producer owned by peerID on the given transport.
// The engine removes the producer when its transport closes; the hook
// keeps the session map in sync with that cascade.
func (s *Session) Produce(
	transportID string,
	peerID domain.PeerID,
	kind mediasoup.MediaKind,
	rtp *mediasoup.RtpParameters,
	paused bool,
) (media.Producer, error) {
	t, err := s.transport(transportID)
	if err != nil {
		return nil, err
	}

	producer, err := t.Produce(kind, rtp, paused)
	if err != nil {
		return nil, fmt.Errorf("produce: %w", err)
	}

	id := producer.ID()
	producer.OnClose(func() {
		s.mu.Lock()
		delete(s.producers, id)
		s.mu.Unlock()
	})

	s.mu.Lock()
	if _, ok := s.transports[transportID]; !ok {
		s.mu.Unlock()
		closeLogged("producer", id, producer.Close)
		return nil, domain.ErrTransportNotFound
	}
	s.producers[id] = producerEntry{producer: producer, owner: peerID}
	s.mu.Unlock()
	return producer, nil
}

// Consume attaches a consumer for producerID onto transportID, gated by
// the router capability check.
func (s *Session) Consume(
	transportID, producerID string,
	caps *mediasoup.RtpCapabilities,
) (media.Consumer, error) {
	s.mu.Lock()
	if _, ok := s.producers[producerID]; !ok {
		s.mu.Unlock()
		return nil, domain.ErrProducerNotFound
	}
	t, ok := s.transports[transportID]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrTransportNotFound
	}

	if !s.router.CanConsume(producerID, caps) {
		return nil, domain.ErrConsumeRejected
	}

	consumer, err := t.Consume(producerID, caps)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	id := consumer.ID()
	consumer.OnClose(func() {
		s.mu.Lock()
		delete(s.consumers, id)
		s.mu.Unlock()
	})

	s.mu.Lock()
	if _, ok := s.transports[transportID]; !ok {
		s.mu.Unlock()
		closeLogged("consumer", id, consumer.Close)
		return nil, domain.ErrTransportNotFound
	}
	s.consumers[id] = consumer
	s.mu.Unlock()
	return consumer, nil
}

func (s *Session) ProduceData(
	transportID string,
	peerID domain.PeerID,
	sctp *mediasoup.SctpStreamParameters,
	label, protocol string,
) (media.DataProducer, error) {
	t, err := s.transport(transportID)
	if err != nil {
		return nil, err
	}

	dp, err := t.ProduceData(sctp, label, protocol)
	if err != nil {
		return nil, fmt.Errorf("produce data: %w", err)
	}

	id := dp.ID()
	dp.OnClose(func() {
		s.mu.Lock()
		delete(s.dataProducers, id)
		s.mu.Unlock()
	})

	s.mu.Lock()
	if _, ok := s.transports[transportID]; !ok {
		s.mu.Unlock()
		closeLogged("data producer", id, dp.Close)
		return nil, domain.ErrTransportNotFound
	}
	s.dataProducers[id] = dataProducerEntry{producer: dp, owner: peerID}
	s.mu.Unlock()
	return dp, nil
}

func (s *Session) ConsumeData(transportID, dataProducerID string) (media.DataConsumer, error) {
	s.mu.Lock()
	if _, ok := s.dataProducers[dataProducerID]; !ok {
		s.mu.Unlock()
		return nil, domain.ErrDataProducerNotFound
	}
	t, ok := s.transports[transportID]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrTransportNotFound
	}

	dc, err := t.ConsumeData(dataProducerID)
	if err != nil {
		return nil, fmt.Errorf("consume data: %w", err)
	}

	id := dc.ID()
	dc.OnClose(func() {
		s.mu.Lock()
		delete(s.dataConsumers, id)
		s.mu.Unlock()
	})

	s.mu.Lock()
	if _, ok := s.transports[transportID]; !ok {
		s.mu.Unlock()
		closeLogged("data consumer", id, dc.Close)
		return nil, domain.ErrTransportNotFound
	}
	s.dataConsumers[id] = dc
	s.mu.Unlock()
	return dc, nil
}

func (s *Session) DataConsumer(id string) (media.DataConsumer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dc, ok := s.dataConsumers[id]
	return dc, ok
}

func (s *Session) Producer(id string) (media.Producer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.producers[id]
	if !ok {
		return nil, false
	}
	return e.producer, true
}

// closeLogged runs one resource close; a failure is logged and never
// stops the surrounding cleanup sequence.
func closeLogged(what, id string, close func() error) {
	if err := close(); err != nil {
		log.Warn().Err(err).
			Str("module", "core.session").
			Str("resource", what).
			Str("id", id).
			Msg("close failed")
	}
}

// CloseProducer closes the producer if present. Unknown ids are fine:
// the engine cascade may have removed it already.
func (s *Session) CloseProducer(id string) {
	s.mu.Lock()
	e, ok := s.producers[id]
	s.mu.Unlock()
	if ok {
		closeLogged("producer", id, e.producer.Close)
	}
}

func (s *Session) CloseDataProducer(id string) {
	s.mu.Lock()
	e, ok := s.dataProducers[id]
	s.mu.Unlock()
	if ok {
		closeLogged("data producer", id, e.producer.Close)
	}
}

func (s *Session) CloseTransport(id string) {
	s.mu.Lock()
	t, ok := s.transports[id]
	s.mu.Unlock()
	if ok {
		closeLogged("transport", id, t.Close)
	}
}

// Close tears down every transport and then the router. Errors are
// logged and do not stop the teardown.
func (s *Session) Close() {
	s.mu.Lock()
	transports := make([]media.Transport, 0, len(s.transports))
	for _, t := range s.transports {
		transports = append(transports, t)
	}
	s.mu.Unlock()

	for _, t := range transports {
		if err := t.Close(); err != nil {
			log.Warn().Err(err).
				Str("module", "core.session").
				Str("session_id", string(s.ID)).
				Msg("transport close")
		}
	}
	if err := s.router.Close(); err != nil {
		log.Warn().Err(err).
			Str("module", "core.session").
			Str("session_id", string(s.ID)).
			Msg("router close")
	}
}

func (s *Session) AddMember(p *Peer) {
	s.mu.Lock()
	s.members[p.ID] = p
	s.mu.Unlock()
}

func (s *Session) RemoveMember(id domain.PeerID) {
	s.mu.Lock()
	delete(s.members, id)
	s.mu.Unlock()
}

func (s *Session) MemberByUser(userID domain.UserID) (*Peer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.members {
		if p.UserID == userID {
			return p, true
		}
	}
	return nil, false
}

func (s *Session) Members() []*Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Peer, 0, len(s.members))
	for _, p := range s.members {
		out = append(out, p)
	}
	return out
}

func (s *Session) MemberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

type ProducerSnapshot struct {
	ID     string              `json:"producerId"`
	PeerID domain.PeerID       `json:"peerId"`
	UserID domain.UserID       `json:"userId"`
	Name   string              `json:"name"`
	Kind   mediasoup.MediaKind `json:"kind"`
	Muted  bool                `json:"muted"`
}

type DataProducerSnapshot struct {
	ID       string        `json:"dataProducerId"`
	PeerID   domain.PeerID `json:"peerId"`
	Label    string        `json:"label"`
	Protocol string        `json:"protocol"`
}

func (s *Session) ProducerSnapshots() []ProducerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProducerSnapshot, 0, len(s.producers))
	for id, e := range s.producers {
		snap := ProducerSnapshot{
			ID:     id,
			PeerID: e.owner,
			Kind:   e.producer.Kind(),
			Muted:  e.producer.Paused(),
		}
		if owner, ok := s.members[e.owner]; ok {
			snap.UserID = owner.UserID
			snap.Name = owner.Name
		}
		out = append(out, snap)
	}
	return out
}

func (s *Session) DataProducerSnapshots() []DataProducerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DataProducerSnapshot, 0, len(s.dataProducers))
	for id, e := range s.dataProducers {
		out = append(out, DataProducerSnapshot{
			ID:       id,
			PeerID:   e.owner,
			Label:    e.producer.Label(),
			Protocol: e.producer.Protocol(),
		})
	}
	return out
}

// Empty reports whether the session tracks no members and no resources.
func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members) == 0 &&
		len(s.transports) == 0 &&
		len(s.producers) == 0 &&
		len(s.consumers) == 0 &&
		len(s.dataProducers) == 0 &&
		len(s.dataConsumers) == 0
}
