package signal

import (
	"github.com/bytedance/sonic"
	mediasoup "github.com/jiyeyuran/mediasoup-go/v2"
)

func (ctl *Controller) handleRouterCapabilities(c *WsConn, env envelope) {
	caps, err := ctl.Orch.RouterCapabilities(c.peerID)
	if err != nil {
		ctl.sendErr(c, env, err)
		return
	}
	ctl.sendAck(c, env, caps)
}

func (ctl *Controller) handleCreateTransport(c *WsConn, env envelope) {
	var p struct {
		Direction         string `json:"direction"`
		EnableDataChannel *bool  `json:"enableDataChannel"`
	}
	if err := sonic.Unmarshal(env.Data, &p); err != nil {
		ctl.sendErr(c, env, err)
		return
	}

	// data channels default on, the chat overlay rides every transport
	enableData := p.EnableDataChannel == nil || *p.EnableDataChannel
	reply, err := ctl.Orch.CreateTransport(c.peerID, p.Direction == "send", enableData)
	if err != nil {
		ctl.sendErr(c, env, err)
		return
	}
	ctl.sendAck(c, env, reply)
}

func (ctl *Controller) handleConnectTransport(c *WsConn, env envelope) {
	var p struct {
		TransportID    string                    `json:"transportId"`
		DtlsParameters *mediasoup.DtlsParameters `json:"dtlsParameters"`
	}
	if err := sonic.Unmarshal(env.Data, &p); err != nil {
		ctl.sendErr(c, env, err)
		return
	}

	if err := ctl.Orch.ConnectTransport(p.TransportID, p.DtlsParameters); err != nil {
		ctl.sendErr(c, env, err)
		return
	}
	ctl.sendAck(c, env, map[string]any{"connected": true})
}

func (ctl *Controller) handleProduce(c *WsConn, env envelope) {
	var p struct {
		TransportID   string                   `json:"transportId"`
		Kind          mediasoup.MediaKind      `json:"kind"`
		RtpParameters *mediasoup.RtpParameters `json:"rtpParameters"`
		Muted         bool                     `json:"muted"`
	}
	if err := sonic.Unmarshal(env.Data, &p); err != nil {
		ctl.sendErr(c, env, err)
		return
	}

	id, err := ctl.Orch.Produce(c.peerID, p.TransportID, p.Kind, p.RtpParameters, p.Muted)
	if err != nil {
		ctl.sendErr(c, env, err)
		return
	}
	ctl.sendAck(c, env, map[string]any{"id": id})
}

func (ctl *Controller) handleConsume(c *WsConn, env envelope) {
	var p struct {
		ProducerID      string                     `json:"producerId"`
		RtpCapabilities *mediasoup.RtpCapabilities `json:"rtpCapabilities"`
	}
	if err := sonic.Unmarshal(env.Data, &p); err != nil {
		ctl.sendErr(c, env, err)
		return
	}

	reply, err := ctl.Orch.Consume(c.peerID, p.ProducerID, p.RtpCapabilities)
	if err != nil {
		ctl.sendErr(c, env, err)
		return
	}
	ctl.sendAck(c, env, reply)
}

func (ctl *Controller) handleProducerMuted(c *WsConn, env envelope) {
	var p struct {
		Muted bool `json:"muted"`
	}
	if err := sonic.Unmarshal(env.Data, &p); err != nil {
		ctl.sendErr(c, env, err)
		return
	}

	if err := ctl.Orch.SetMuted(c.peerID, p.Muted); err != nil {
		ctl.sendErr(c, env, err)
		return
	}
	ctl.sendAck(c, env, map[string]any{"muted": p.Muted})
}

func (ctl *Controller) handleProduceData(c *WsConn, env envelope) {
	var p struct {
		TransportID          string                          `json:"transportId"`
		SctpStreamParameters *mediasoup.SctpStreamParameters `json:"sctpStreamParameters"`
		Label                string                          `json:"label"`
		Protocol             string                          `json:"protocol"`
	}
	if err := sonic.Unmarshal(env.Data, &p); err != nil {
		ctl.sendErr(c, env, err)
		return
	}

	reply, err := ctl.Orch.ProduceData(c.peerID, p.TransportID, p.SctpStreamParameters, p.Label, p.Protocol)
	if err != nil {
		ctl.sendErr(c, env, err)
		return
	}
	ctl.sendAck(c, env, reply)
}

func (ctl *Controller) handleConsumeData(c *WsConn, env envelope) {
	var p struct {
		DataProducerID string `json:"dataProducerId"`
	}
	if err := sonic.Unmarshal(env.Data, &p); err != nil {
		ctl.sendErr(c, env, err)
		return
	}

	reply, err := ctl.Orch.ConsumeData(c.peerID, p.DataProducerID)
	if err != nil {
		ctl.sendErr(c, env, err)
		return
	}
	ctl.sendAck(c, env, reply)
}

func (ctl *Controller) handleDataConsumerResume(c *WsConn, env envelope) {
	var p struct {
		DataConsumerID string `json:"dataConsumerId"`
	}
	if err := sonic.Unmarshal(env.Data, &p); err != nil {
		ctl.sendErr(c, env, err)
		return
	}

	if err := ctl.Orch.ResumeDataConsumer(c.peerID, p.DataConsumerID); err != nil {
		ctl.sendErr(c, env, err)
		return
	}
	ctl.sendAck(c, env, map[string]any{"resumed": true})
}
