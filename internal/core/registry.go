package core

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/huddle-dev/huddle/internal/domain"
	"github.com/huddle-dev/huddle/internal/media"
)

// Engine acquires the shared media worker. Satisfied by media.Pool and
// by the test fake.
type Engine interface {
	Acquire() (media.Worker, error)
}

// Registry maps session ids to live sessions and keeps the transport
// reverse index used by connectTransport.
type Registry struct {
	engine Engine
	group  singleflight.Group

	mu          sync.RWMutex
	sessions    map[domain.SessionID]*Session
	byTransport map[string]domain.SessionID
}

func NewRegistry(engine Engine) *Registry {
	return &Registry{
		engine:      engine,
		sessions:    make(map[domain.SessionID]*Session),
		byTransport: make(map[string]domain.SessionID),
	}
}

func (r *Registry) Get(id domain.SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// GetOrCreate returns the session, creating its router on first use.
// Concurrent creations of the same session are collapsed into one.
func (r *Registry) GetOrCreate(id domain.SessionID) (*Session, error) {
	if s, ok := r.Get(id); ok {
		return s, nil
	}

	v, err, _ := r.group.Do(string(id), func() (any, error) {
		if s, ok := r.Get(id); ok {
			return s, nil
		}
		worker, err := r.engine.Acquire()
		if err != nil {
			return nil, fmt.Errorf("acquire worker: %w", err)
		}
		router, err := worker.CreateRouter()
		if err != nil {
			return nil, fmt.Errorf("create router: %w", err)
		}

		s := NewSession(id, router)
		s.onTransportGone = func(transportID string) {
			r.mu.Lock()
			delete(r.byTransport, transportID)
			r.mu.Unlock()
		}

		r.mu.Lock()
		r.sessions[id] = s
		r.mu.Unlock()
		log.Info().Str("module", "core.registry").Str("session_id", string(id)).Msg("session created")
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// TrackTransport adds the reverse index entry. Called by the app layer
// right after Session.CreateTransport succeeds.
func (r *Registry) TrackTransport(transportID string, sessionID domain.SessionID) {
	r.mu.Lock()
	r.byTransport[transportID] = sessionID
	r.mu.Unlock()
}

func (r *Registry) SessionByTransport(transportID string) (*Session, bool) {
	r.mu.RLock()
	sid, ok := r.byTransport[transportID]
	if !ok {
		r.mu.RUnlock()
		return nil, false
	}
	s, ok := r.sessions[sid]
	r.mu.RUnlock()
	return s, ok
}

// Destroy closes the session and drops it with its index entries.
func (r *Registry) Destroy(id domain.SessionID) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, id)
	for tid, sid := range r.byTransport {
		if sid == id {
			delete(r.byTransport, tid)
		}
	}
	r.mu.Unlock()

	s.Close()
	log.Info().Str("module", "core.registry").Str("session_id", string(id)).Msg("session destroyed")
}

func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
