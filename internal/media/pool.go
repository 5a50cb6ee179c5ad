package media

import (
	"context"
	"os"
	"sync"
	"time"

	mediasoup "github.com/jiyeyuran/mediasoup-go/v2"
	"github.com/rs/zerolog/log"

	"github.com/huddle-dev/huddle/internal/config"
)

// Pool owns the mediasoup worker process. The worker is created lazily
// on first Acquire and shared by every router after that.
type Pool struct {
	cfg config.MediaConfig

	mu      sync.Mutex
	worker  Worker
	closing bool

	// exit hook, swapped in tests
	fatalExit func()
}

func NewPool(cfg config.MediaConfig) *Pool {
	return &Pool{
		cfg:       cfg,
		fatalExit: func() { os.Exit(1) },
	}
}

func (p *Pool) Acquire() (Worker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.worker != nil {
		return p.worker, nil
	}

	w, err := mediasoup.NewWorker(p.cfg.WorkerBin, func(s *mediasoup.WorkerSettings) {
		s.LogLevel = mediasoup.WorkerLogLevel(p.cfg.LogLevel)
		s.LogTags = []mediasoup.WorkerLogTag{
			mediasoup.WorkerLogTagInfo,
			mediasoup.WorkerLogTagIce,
			mediasoup.WorkerLogTagDtls,
			mediasoup.WorkerLogTagRtp,
			mediasoup.WorkerLogTagSrtp,
		}
	})
	if err != nil {
		return nil, err
	}

	w.OnClose(func(context.Context) {
		p.mu.Lock()
		closing := p.closing
		p.worker = nil
		p.mu.Unlock()
		if closing {
			return
		}
		// Worker death is unrecoverable for every live router. Give
		// in-flight logs a moment, then exit.
		log.Error().Str("module", "media.pool").Msg("mediasoup worker died, exiting")
		time.Sleep(2 * time.Second)
		p.fatalExit()
	})

	log.Info().
		Str("module", "media.pool").
		Int("rtc_min_port", p.cfg.RTCMinPort).
		Int("rtc_max_port", p.cfg.RTCMaxPort).
		Msg("mediasoup worker started")

	// The worker takes no port range of its own, each transport asks
	// for one, so the bounds ride along to every CreateTransport.
	p.worker = &msWorker{w: w, cfg: workerSettings{
		announcedAddress: p.cfg.AnnouncedAddress,
		rtcMinPort:       uint16(p.cfg.RTCMinPort),
		rtcMaxPort:       uint16(p.cfg.RTCMaxPort),
	}}
	return p.worker, nil
}

func (p *Pool) Close() {
	p.mu.Lock()
	p.closing = true
	w := p.worker
	p.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}
}
