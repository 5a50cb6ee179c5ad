// Package mediatest provides an in-memory media engine for tests.
package mediatest

import (
	"fmt"
	"sync"
	"sync/atomic"

	mediasoup "github.com/jiyeyuran/mediasoup-go/v2"

	"github.com/huddle-dev/huddle/internal/media"
)

var seq atomic.Int64

func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, seq.Add(1))
}

// Engine hands out fake workers. ConsumeOK controls CanConsume; it
// defaults to allowing everything. Interleave runs inside each
// produce/consume call so tests can interleave a concurrent operation
// with an in-flight engine call.
type Engine struct {
	ConsumeOK  func(producerID string, caps *mediasoup.RtpCapabilities) bool
	Interleave func()
}

func (e *Engine) interleave() {
	if e != nil && e.Interleave != nil {
		e.Interleave()
	}
}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) Acquire() (media.Worker, error) {
	return &Worker{engine: e}, nil
}

type Worker struct {
	engine *Engine
	closed bool
}

func (w *Worker) CreateRouter() (media.Router, error) {
	return &Router{
		engine: w.engine,
		id:     nextID("router"),
		caps:   &mediasoup.RtpCapabilities{},
	}, nil
}

func (w *Worker) Close() error {
	w.closed = true
	return nil
}

type Router struct {
	engine *Engine
	id     string
	caps   *mediasoup.RtpCapabilities

	mu         sync.Mutex
	closed     bool
	transports []*Transport
}

func (r *Router) ID() string                                  { return r.id }
func (r *Router) RTPCapabilities() *mediasoup.RtpCapabilities { return r.caps }

func (r *Router) CanConsume(producerID string, caps *mediasoup.RtpCapabilities) bool {
	if r.engine.ConsumeOK != nil {
		return r.engine.ConsumeOK(producerID, caps)
	}
	return true
}

func (r *Router) CreateTransport(opts media.TransportOptions) (media.Transport, media.TransportInfo, error) {
	t := &Transport{id: nextID("transport"), engine: r.engine}
	r.mu.Lock()
	r.transports = append(r.transports, t)
	r.mu.Unlock()

	info := media.TransportInfo{ID: t.id}
	if opts.EnableSctp {
		info.SctpParameters = &mediasoup.SctpParameters{OS: 1024, MIS: 1024}
	}
	return t, info, nil
}

func (r *Router) Close() error {
	r.mu.Lock()
	r.closed = true
	transports := r.transports
	r.mu.Unlock()
	for _, t := range transports {
		_ = t.Close()
	}
	return nil
}

func (r *Router) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type Transport struct {
	id     string
	engine *Engine

	mu        sync.Mutex
	closed    bool
	connected bool
	onClose   []func()
	producers []*Producer
	dataProds []*DataProducer
}

func (t *Transport) ID() string { return t.id }

func (t *Transport) Connect(dtls *mediasoup.DtlsParameters) error {
	t.mu.Lock()
	t.connected = true
	t.mu.Unlock()
	return nil
}

func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *Transport) Produce(kind mediasoup.MediaKind, rtp *mediasoup.RtpParameters, paused bool) (media.Producer, error) {
	t.engine.interleave()
	p := &Producer{id: nextID("producer"), kind: kind, paused: paused}
	t.mu.Lock()
	t.producers = append(t.producers, p)
	t.mu.Unlock()
	return p, nil
}

func (t *Transport) Consume(producerID string, caps *mediasoup.RtpCapabilities) (media.Consumer, error) {
	t.engine.interleave()
	return &Consumer{
		id:         nextID("consumer"),
		producerID: producerID,
		kind:       mediasoup.MediaKindAudio,
		rtp:        &mediasoup.RtpParameters{},
	}, nil
}

func (t *Transport) ProduceData(sctp *mediasoup.SctpStreamParameters, label, protocol string) (media.DataProducer, error) {
	t.engine.interleave()
	dp := &DataProducer{id: nextID("dataproducer"), label: label, protocol: protocol, sctp: sctp}
	t.mu.Lock()
	t.dataProds = append(t.dataProds, dp)
	t.mu.Unlock()
	return dp, nil
}

func (t *Transport) ConsumeData(dataProducerID string) (media.DataConsumer, error) {
	t.engine.interleave()
	return &DataConsumer{
		id:             nextID("dataconsumer"),
		dataProducerID: dataProducerID,
		label:          "data",
	}, nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	hooks := t.onClose
	producers := t.producers
	dataProds := t.dataProds
	t.mu.Unlock()

	for _, p := range producers {
		_ = p.Close()
	}
	for _, dp := range dataProds {
		_ = dp.Close()
	}
	for _, fn := range hooks {
		fn()
	}
	return nil
}

func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transport) OnClose(fn func()) {
	t.mu.Lock()
	t.onClose = append(t.onClose, fn)
	t.mu.Unlock()
}

type Producer struct {
	id   string
	kind mediasoup.MediaKind

	mu      sync.Mutex
	paused  bool
	closed  bool
	onClose []func()
}

func (p *Producer) ID() string                { return p.id }
func (p *Producer) Kind() mediasoup.MediaKind { return p.kind }

func (p *Producer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Producer) Pause() error {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
	return nil
}

func (p *Producer) Resume() error {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	return nil
}

func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	hooks := p.onClose
	p.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return nil
}

func (p *Producer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Producer) OnClose(fn func()) {
	p.mu.Lock()
	p.onClose = append(p.onClose, fn)
	p.mu.Unlock()
}

type Consumer struct {
	id         string
	producerID string
	kind       mediasoup.MediaKind
	rtp        *mediasoup.RtpParameters

	mu             sync.Mutex
	producerPaused bool
	closed         bool
	onClose        []func()
}

func (c *Consumer) ID() string                              { return c.id }
func (c *Consumer) ProducerID() string                      { return c.producerID }
func (c *Consumer) Kind() mediasoup.MediaKind               { return c.kind }
func (c *Consumer) RTPParameters() *mediasoup.RtpParameters { return c.rtp }

func (c *Consumer) ProducerPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.producerPaused
}

func (c *Consumer) Resume() error { return nil }

func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	hooks := c.onClose
	c.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return nil
}

func (c *Consumer) OnClose(fn func()) {
	c.mu.Lock()
	c.onClose = append(c.onClose, fn)
	c.mu.Unlock()
}

type DataProducer struct {
	id       string
	label    string
	protocol string
	sctp     *mediasoup.SctpStreamParameters

	mu      sync.Mutex
	closed  bool
	onClose []func()
}

func (d *DataProducer) ID() string       { return d.id }
func (d *DataProducer) Label() string    { return d.label }
func (d *DataProducer) Protocol() string { return d.protocol }
func (d *DataProducer) SctpStreamParameters() *mediasoup.SctpStreamParameters {
	return d.sctp
}

func (d *DataProducer) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	hooks := d.onClose
	d.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return nil
}

func (d *DataProducer) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *DataProducer) OnClose(fn func()) {
	d.mu.Lock()
	d.onClose = append(d.onClose, fn)
	d.mu.Unlock()
}

type DataConsumer struct {
	id             string
	dataProducerID string
	label          string

	mu      sync.Mutex
	closed  bool
	onClose []func()
}

func (d *DataConsumer) ID() string             { return d.id }
func (d *DataConsumer) DataProducerID() string { return d.dataProducerID }
func (d *DataConsumer) Label() string          { return d.label }
func (d *DataConsumer) Protocol() string       { return "" }
func (d *DataConsumer) SctpStreamParameters() *mediasoup.SctpStreamParameters {
	return nil
}

func (d *DataConsumer) Resume() error { return nil }

func (d *DataConsumer) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	hooks := d.onClose
	d.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return nil
}

func (d *DataConsumer) OnClose(fn func()) {
	d.mu.Lock()
	d.onClose = append(d.onClose, fn)
	d.mu.Unlock()
}
