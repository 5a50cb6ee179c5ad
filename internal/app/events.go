package app

import (
	mediasoup "github.com/jiyeyuran/mediasoup-go/v2"

	"github.com/huddle-dev/huddle/internal/core"
	"github.com/huddle-dev/huddle/internal/domain"
)

// Event names pushed to clients outside the request/ack cycle.
const (
	EvSessionReplaced    = "session:replaced"
	EvPeerJoined         = "peerJoined"
	EvPeerLeft           = "peerLeft"
	EvNewProducer        = "newProducer"
	EvProducerClosed     = "producerClosed"
	EvProducerMuted      = "producerMuted"
	EvNewDataProducer    = "newDataProducer"
	EvDataProducerClosed = "dataProducerClosed"
	EvShareState         = "screenShare:state"
	EvShareStarted       = "screenShare:started"
	EvShareStopped       = "screenShare:stopped"
	EvMatched            = "randomChat:matched"
	EvWaiting            = "randomChat:waiting"
	EvPartnerLeft        = "randomChat:partnerLeft"
)

type event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func push(typ string, data any) event {
	return event{Type: typ, Data: data}
}

type PeerInfo struct {
	PeerID domain.PeerID `json:"peerId"`
	UserID domain.UserID `json:"userId"`
	Name   string        `json:"name"`
}

// SessionSnapshot is the join reply: everything a newcomer needs to
// start consuming.
type SessionSnapshot struct {
	SessionID     domain.SessionID            `json:"sessionId"`
	Peers         []PeerInfo                  `json:"peers"`
	Producers     []core.ProducerSnapshot     `json:"producers"`
	DataProducers []core.DataProducerSnapshot `json:"dataProducers"`
	ScreenShare   *core.ShareState            `json:"screenShare,omitempty"`
}

type peerJoinedEvent struct {
	PeerID domain.PeerID `json:"peerId"`
	UserID domain.UserID `json:"userId"`
	Name   string        `json:"name"`
}

type peerLeftEvent struct {
	PeerID domain.PeerID `json:"peerId"`
}

type newProducerEvent struct {
	ProducerID string              `json:"producerId"`
	PeerID     domain.PeerID       `json:"peerId"`
	UserID     domain.UserID       `json:"userId"`
	Name       string              `json:"name"`
	Kind       mediasoup.MediaKind `json:"kind"`
	Muted      bool                `json:"muted"`
}

type producerClosedEvent struct {
	ProducerID string        `json:"producerId"`
	PeerID     domain.PeerID `json:"peerId"`
}

type producerMutedEvent struct {
	ProducerID string        `json:"producerId"`
	PeerID     domain.PeerID `json:"peerId"`
	UserID     domain.UserID `json:"userId"`
	Muted      bool          `json:"muted"`
}

type newDataProducerEvent struct {
	DataProducerID string        `json:"dataProducerId"`
	PeerID         domain.PeerID `json:"peerId"`
	Label          string        `json:"label"`
	Protocol       string        `json:"protocol"`
}

type dataProducerClosedEvent struct {
	DataProducerID string        `json:"dataProducerId"`
	PeerID         domain.PeerID `json:"peerId"`
}

type shareStateEvent struct {
	Active bool             `json:"active"`
	Owner  *core.ShareState `json:"owner,omitempty"`
}

type shareStoppedEvent struct {
	PeerID domain.PeerID `json:"peerId"`
}

type matchedEvent struct {
	SessionID domain.SessionID `json:"sessionId"`
	Partner   PartnerInfo      `json:"partner"`
}

type PartnerInfo struct {
	UserID domain.UserID `json:"userId"`
	Name   string        `json:"name"`
}
