// Package media is the boundary to the external media engine. Session
// state above this package holds only the narrow handles declared here,
// never library objects.
package media

import (
	mediasoup "github.com/jiyeyuran/mediasoup-go/v2"
)

// TransportOptions selects what a new server-side transport supports.
type TransportOptions struct {
	EnableSctp bool
	AppData    mediasoup.H
}

// TransportInfo is everything a client needs to complete the handshake
// for a transport. Relay (ICE) servers are appended by the caller.
type TransportInfo struct {
	ID             string                    `json:"id"`
	IceParameters  mediasoup.IceParameters   `json:"iceParameters"`
	IceCandidates  []mediasoup.IceCandidate  `json:"iceCandidates"`
	DtlsParameters mediasoup.DtlsParameters  `json:"dtlsParameters"`
	SctpParameters *mediasoup.SctpParameters `json:"sctpParameters,omitempty"`
}

type Worker interface {
	CreateRouter() (Router, error)
	Close() error
}

type Router interface {
	ID() string
	RTPCapabilities() *mediasoup.RtpCapabilities
	CanConsume(producerID string, caps *mediasoup.RtpCapabilities) bool
	CreateTransport(opts TransportOptions) (Transport, TransportInfo, error)
	Close() error
}

type Transport interface {
	ID() string
	Connect(dtls *mediasoup.DtlsParameters) error
	Produce(kind mediasoup.MediaKind, rtp *mediasoup.RtpParameters, paused bool) (Producer, error)
	Consume(producerID string, caps *mediasoup.RtpCapabilities) (Consumer, error)
	ProduceData(sctp *mediasoup.SctpStreamParameters, label, protocol string) (DataProducer, error)
	ConsumeData(dataProducerID string) (DataConsumer, error)
	Close() error
	OnClose(fn func())
}

type Producer interface {
	ID() string
	Kind() mediasoup.MediaKind
	Paused() bool
	Pause() error
	Resume() error
	Close() error
	OnClose(fn func())
}

type Consumer interface {
	ID() string
	ProducerID() string
	Kind() mediasoup.MediaKind
	RTPParameters() *mediasoup.RtpParameters
	ProducerPaused() bool
	Resume() error
	Close() error
	OnClose(fn func())
}

type DataProducer interface {
	ID() string
	Label() string
	Protocol() string
	SctpStreamParameters() *mediasoup.SctpStreamParameters
	Close() error
	OnClose(fn func())
}

type DataConsumer interface {
	ID() string
	DataProducerID() string
	Label() string
	Protocol() string
	SctpStreamParameters() *mediasoup.SctpStreamParameters
	Resume() error
	Close() error
	OnClose(fn func())
}
