package media

import (
	"context"

	mediasoup "github.com/jiyeyuran/mediasoup-go/v2"
)

// All direct mediasoup-go calls live in this file. Everything above it
// sees only the interfaces in engine.go.

type msWorker struct {
	w   *mediasoup.Worker
	cfg workerSettings
}

type workerSettings struct {
	announcedAddress string
	rtcMinPort       uint16
	rtcMaxPort       uint16
}

type msRouter struct {
	r   *mediasoup.Router
	cfg workerSettings
}

type msTransport struct{ t *mediasoup.Transport }
type msProducer struct{ p *mediasoup.Producer }
type msConsumer struct{ c *mediasoup.Consumer }
type msDataProducer struct{ dp *mediasoup.DataProducer }
type msDataConsumer struct{ dc *mediasoup.DataConsumer }

func (w *msWorker) CreateRouter() (Router, error) {
	r, err := w.w.CreateRouter(&mediasoup.RouterOptions{
		MediaCodecs: routerCodecs(),
	})
	if err != nil {
		return nil, err
	}
	return &msRouter{r: r, cfg: w.cfg}, nil
}

func (w *msWorker) Close() error {
	w.w.Close()
	return nil
}

func (r *msRouter) ID() string { return r.r.Id() }

func (r *msRouter) RTPCapabilities() *mediasoup.RtpCapabilities {
	return r.r.RtpCapabilities()
}

func (r *msRouter) CanConsume(producerID string, caps *mediasoup.RtpCapabilities) bool {
	return r.r.CanConsume(producerID, caps)
}

func (r *msRouter) CreateTransport(opts TransportOptions) (Transport, TransportInfo, error) {
	enableUDP := true
	t, err := r.r.CreateWebRtcTransport(&mediasoup.WebRtcTransportOptions{
		ListenInfos: listenInfos(r.cfg),
		EnableUdp:                       &enableUDP,
		EnableTcp:                       true,
		PreferUdp:                       true,
		EnableSctp:                      opts.EnableSctp,
		NumSctpStreams:                  &mediasoup.NumSctpStreams{OS: 1024, MIS: 1024},
		InitialAvailableOutgoingBitrate: 8_000_000,
		AppData:                         opts.AppData,
	})
	if err != nil {
		return nil, TransportInfo{}, err
	}

	data := t.Data().WebRtcTransportData
	info := TransportInfo{
		ID:             t.Id(),
		IceParameters:  data.IceParameters,
		IceCandidates:  data.IceCandidates,
		DtlsParameters: data.DtlsParameters,
		SctpParameters: data.SctpParameters,
	}
	return &msTransport{t: t}, info, nil
}

func (r *msRouter) Close() error { return r.r.Close() }

// listenInfos builds the UDP and TCP listeners every transport binds.
// The port range comes from the worker config since the engine has no
// worker-wide port setting.
func listenInfos(cfg workerSettings) []mediasoup.TransportListenInfo {
	ports := mediasoup.TransportPortRange{Min: cfg.rtcMinPort, Max: cfg.rtcMaxPort}
	return []mediasoup.TransportListenInfo{
		{
			Protocol:         mediasoup.TransportProtocolUDP,
			Ip:               "0.0.0.0",
			AnnouncedAddress: cfg.announcedAddress,
			PortRange:        ports,
		},
		{
			Protocol:         mediasoup.TransportProtocolTCP,
			Ip:               "0.0.0.0",
			AnnouncedAddress: cfg.announcedAddress,
			PortRange:        ports,
		},
	}
}

func (t *msTransport) ID() string { return t.t.Id() }

func (t *msTransport) Connect(dtls *mediasoup.DtlsParameters) error {
	return t.t.Connect(&mediasoup.TransportConnectOptions{DtlsParameters: dtls})
}

func (t *msTransport) Produce(kind mediasoup.MediaKind, rtp *mediasoup.RtpParameters, paused bool) (Producer, error) {
	p, err := t.t.Produce(&mediasoup.ProducerOptions{
		Kind:          kind,
		RtpParameters: rtp,
		Paused:        paused,
	})
	if err != nil {
		return nil, err
	}
	return &msProducer{p: p}, nil
}

func (t *msTransport) Consume(producerID string, caps *mediasoup.RtpCapabilities) (Consumer, error) {
	c, err := t.t.Consume(&mediasoup.ConsumerOptions{
		ProducerId:      producerID,
		RtpCapabilities: caps,
	})
	if err != nil {
		return nil, err
	}
	return &msConsumer{c: c}, nil
}

func (t *msTransport) ProduceData(sctp *mediasoup.SctpStreamParameters, label, protocol string) (DataProducer, error) {
	dp, err := t.t.ProduceData(&mediasoup.DataProducerOptions{
		SctpStreamParameters: sctp,
		Label:                label,
		Protocol:             protocol,
	})
	if err != nil {
		return nil, err
	}
	return &msDataProducer{dp: dp}, nil
}

func (t *msTransport) ConsumeData(dataProducerID string) (DataConsumer, error) {
	dc, err := t.t.ConsumeData(&mediasoup.DataConsumerOptions{
		DataProducerId: dataProducerID,
	})
	if err != nil {
		return nil, err
	}
	return &msDataConsumer{dc: dc}, nil
}

func (t *msTransport) Close() error { return t.t.Close() }

func (t *msTransport) OnClose(fn func()) {
	t.t.OnClose(func(context.Context) { fn() })
}

func (p *msProducer) ID() string                { return p.p.Id() }
func (p *msProducer) Kind() mediasoup.MediaKind { return p.p.Kind() }
func (p *msProducer) Paused() bool              { return p.p.Paused() }
func (p *msProducer) Pause() error              { return p.p.Pause() }
func (p *msProducer) Resume() error             { return p.p.Resume() }
func (p *msProducer) Close() error              { return p.p.Close() }
func (p *msProducer) OnClose(fn func()) {
	p.p.OnClose(func(context.Context) { fn() })
}

func (c *msConsumer) ID() string                { return c.c.Id() }
func (c *msConsumer) ProducerID() string        { return c.c.ProducerId() }
func (c *msConsumer) Kind() mediasoup.MediaKind { return c.c.Kind() }
func (c *msConsumer) RTPParameters() *mediasoup.RtpParameters {
	return c.c.RtpParameters()
}
func (c *msConsumer) ProducerPaused() bool { return c.c.ProducerPaused() }
func (c *msConsumer) Resume() error        { return c.c.Resume() }
func (c *msConsumer) Close() error         { return c.c.Close() }
func (c *msConsumer) OnClose(fn func()) {
	c.c.OnClose(func(context.Context) { fn() })
}

func (d *msDataProducer) ID() string       { return d.dp.Id() }
func (d *msDataProducer) Label() string    { return d.dp.Label() }
func (d *msDataProducer) Protocol() string { return d.dp.Protocol() }
func (d *msDataProducer) SctpStreamParameters() *mediasoup.SctpStreamParameters {
	return d.dp.SctpStreamParameters()
}
func (d *msDataProducer) Close() error { return d.dp.Close() }
func (d *msDataProducer) OnClose(fn func()) {
	d.dp.OnClose(func(context.Context) { fn() })
}

func (d *msDataConsumer) ID() string             { return d.dc.Id() }
func (d *msDataConsumer) DataProducerID() string { return d.dc.DataProducerId() }
func (d *msDataConsumer) Label() string          { return d.dc.Label() }
func (d *msDataConsumer) Protocol() string       { return d.dc.Protocol() }
func (d *msDataConsumer) SctpStreamParameters() *mediasoup.SctpStreamParameters {
	return d.dc.SctpStreamParameters()
}
func (d *msDataConsumer) Resume() error { return d.dc.Resume() }
func (d *msDataConsumer) Close() error  { return d.dc.Close() }
func (d *msDataConsumer) OnClose(fn func()) {
	d.dc.OnClose(func(context.Context) { fn() })
}
