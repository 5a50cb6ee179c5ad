package app

import (
	mediasoup "github.com/jiyeyuran/mediasoup-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/huddle-dev/huddle/internal/core"
	"github.com/huddle-dev/huddle/internal/domain"
	"github.com/huddle-dev/huddle/internal/media"
)

// session resolves the peer's current session or fails with the
// membership error.
func (o *Orchestrator) session(peerID domain.PeerID) (*core.Peer, *core.Session, error) {
	p, ok := o.Peer(peerID)
	if !ok {
		return nil, nil, domain.ErrNotInSession
	}
	sid := p.SessionID()
	if sid == "" {
		return nil, nil, domain.ErrNotInSession
	}
	s, ok := o.Registry.Get(sid)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	return p, s, nil
}

func (o *Orchestrator) RouterCapabilities(peerID domain.PeerID) (*mediasoup.RtpCapabilities, error) {
	_, s, err := o.session(peerID)
	if err != nil {
		return nil, err
	}
	return s.RouterCapabilities(), nil
}

// TransportReply is the createWebRtcTransport ack payload.
type TransportReply struct {
	media.TransportInfo
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

func (o *Orchestrator) CreateTransport(peerID domain.PeerID, sending, enableData bool) (*TransportReply, error) {
	p, s, err := o.session(peerID)
	if err != nil {
		return nil, err
	}

	info, err := s.CreateTransport(media.TransportOptions{
		EnableSctp: enableData,
		AppData:    mediasoup.H{"peerId": string(peerID)},
	})
	if err != nil {
		return nil, err
	}

	o.Registry.TrackTransport(info.ID, s.ID)
	p.TrackTransport(info.ID, sending)

	return &TransportReply{TransportInfo: info, ICEServers: o.ICEServers}, nil
}

// ConnectTransport finishes the DTLS handshake. The transport id alone
// is enough: the reverse index names its session.
func (o *Orchestrator) ConnectTransport(transportID string, dtls *mediasoup.DtlsParameters) error {
	s, ok := o.Registry.SessionByTransport(transportID)
	if !ok {
		return domain.ErrTransportNotFound
	}
	return s.ConnectTransport(transportID, dtls)
}

func (o *Orchestrator) Produce(
	peerID domain.PeerID,
	transportID string,
	kind mediasoup.MediaKind,
	rtp *mediasoup.RtpParameters,
	muted bool,
) (string, error) {
	p, s, err := o.session(peerID)
	if err != nil {
		return "", err
	}

	producer, err := s.Produce(transportID, peerID, kind, rtp, muted)
	if err != nil {
		return "", err
	}
	p.TrackProducer(producer.ID())

	o.broadcast(s, peerID, push(EvNewProducer, newProducerEvent{
		ProducerID: producer.ID(),
		PeerID:     peerID,
		UserID:     p.UserID,
		Name:       p.Name,
		Kind:       kind,
		Muted:      muted,
	}))
	return producer.ID(), nil
}

// ConsumeReply carries what the client needs to build its consumer.
type ConsumeReply struct {
	ID             string                   `json:"id"`
	ProducerID     string                   `json:"producerId"`
	Kind           mediasoup.MediaKind      `json:"kind"`
	RtpParameters  *mediasoup.RtpParameters `json:"rtpParameters"`
	ProducerPaused bool                     `json:"producerPaused"`
}

func (o *Orchestrator) Consume(peerID domain.PeerID, producerID string, caps *mediasoup.RtpCapabilities) (*ConsumeReply, error) {
	p, s, err := o.session(peerID)
	if err != nil {
		return nil, err
	}
	transportID, ok := p.RecvTransport()
	if !ok {
		return nil, domain.ErrTransportNotFound
	}

	consumer, err := s.Consume(transportID, producerID, caps)
	if err != nil {
		return nil, err
	}

	return &ConsumeReply{
		ID:             consumer.ID(),
		ProducerID:     consumer.ProducerID(),
		Kind:           consumer.Kind(),
		RtpParameters:  consumer.RTPParameters(),
		ProducerPaused: consumer.ProducerPaused(),
	}, nil
}

// DataReply is shared by produceData and consumeData acks.
type DataReply struct {
	ID                   string                          `json:"id"`
	DataProducerID       string                          `json:"dataProducerId,omitempty"`
	Label                string                          `json:"label"`
	Protocol             string                          `json:"protocol,omitempty"`
	SctpStreamParameters *mediasoup.SctpStreamParameters `json:"sctpStreamParameters,omitempty"`
}

func (o *Orchestrator) ProduceData(
	peerID domain.PeerID,
	transportID string,
	sctp *mediasoup.SctpStreamParameters,
	label, protocol string,
) (*DataReply, error) {
	p, s, err := o.session(peerID)
	if err != nil {
		return nil, err
	}

	dp, err := s.ProduceData(transportID, peerID, sctp, label, protocol)
	if err != nil {
		return nil, err
	}
	p.TrackDataProducer(dp.ID())

	o.broadcast(s, peerID, push(EvNewDataProducer, newDataProducerEvent{
		DataProducerID: dp.ID(),
		PeerID:         peerID,
		Label:          label,
		Protocol:       protocol,
	}))
	return &DataReply{ID: dp.ID(), Label: label, Protocol: protocol}, nil
}

func (o *Orchestrator) ConsumeData(peerID domain.PeerID, dataProducerID string) (*DataReply, error) {
	p, s, err := o.session(peerID)
	if err != nil {
		return nil, err
	}
	transportID, ok := p.RecvTransport()
	if !ok {
		return nil, domain.ErrTransportNotFound
	}

	dc, err := s.ConsumeData(transportID, dataProducerID)
	if err != nil {
		return nil, err
	}
	return &DataReply{
		ID:                   dc.ID(),
		DataProducerID:       dc.DataProducerID(),
		Label:                dc.Label(),
		Protocol:             dc.Protocol(),
		SctpStreamParameters: dc.SctpStreamParameters(),
	}, nil
}

func (o *Orchestrator) ResumeDataConsumer(peerID domain.PeerID, dataConsumerID string) error {
	_, s, err := o.session(peerID)
	if err != nil {
		return err
	}
	dc, ok := s.DataConsumer(dataConsumerID)
	if !ok {
		return domain.ErrDataProducerNotFound
	}
	return dc.Resume()
}

// SetMuted pauses or resumes every producer the peer owns and tells the
// session about the new state.
func (o *Orchestrator) SetMuted(peerID domain.PeerID, muted bool) error {
	p, s, err := o.session(peerID)
	if err != nil {
		return err
	}

	for _, id := range p.Producers() {
		producer, ok := s.Producer(id)
		if !ok {
			continue
		}
		var opErr error
		if muted {
			opErr = producer.Pause()
		} else {
			opErr = producer.Resume()
		}
		if opErr != nil {
			log.Warn().Err(opErr).
				Str("module", "app.orch").
				Str("producer_id", id).
				Bool("muted", muted).
				Msg("producer pause toggle")
			continue
		}
		o.broadcast(s, peerID, push(EvProducerMuted, producerMutedEvent{
			ProducerID: id,
			PeerID:     peerID,
			UserID:     p.UserID,
			Muted:      muted,
		}))
	}
	return nil
}

// ShareRequest claims the session's single screen share slot.
func (o *Orchestrator) ShareRequest(peerID domain.PeerID) (*core.ShareState, error) {
	p, s, err := o.session(peerID)
	if err != nil {
		return nil, err
	}

	st, err := o.Share.Request(s.ID, peerID, p.UserID, p.Name)
	if err != nil {
		return st, err
	}

	o.broadcast(s, peerID, push(EvShareState, shareStateEvent{Active: true, Owner: st}))
	return st, nil
}

// ShareBind attaches the screen producers to the claim. Late joiners
// learn the ids from the state broadcast; current members get a started
// event so they can consume immediately.
func (o *Orchestrator) ShareBind(peerID domain.PeerID, videoProducerID, audioProducerID string) (*core.ShareState, error) {
	_, s, err := o.session(peerID)
	if err != nil {
		return nil, err
	}

	st, err := o.Share.Bind(s.ID, peerID, videoProducerID, audioProducerID)
	if err != nil {
		return st, err
	}

	o.broadcast(s, peerID, push(EvShareStarted, st))
	o.broadcast(s, peerID, push(EvShareState, shareStateEvent{Active: true, Owner: st}))
	return st, nil
}

// ShareStop releases the claim on explicit request.
func (o *Orchestrator) ShareStop(peerID domain.PeerID) error {
	_, s, err := o.session(peerID)
	if err != nil {
		return err
	}

	st, err := o.Share.Stop(s.ID, peerID)
	if err != nil {
		return err
	}

	o.broadcast(s, peerID, push(EvShareStopped, shareStoppedEvent{PeerID: st.PeerID}))
	o.broadcast(s, peerID, push(EvShareState, shareStateEvent{Active: false}))
	return nil
}
