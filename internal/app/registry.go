package app

import (
	"sync"
	"time"

	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/dkeye/realtime-voice/internal/gesture"
	"github.com/dkeye/realtime-voice/internal/session"
	"github.com/rs/zerolog/log"
)

// Entry is everything bound to the active session.
type Entry struct {
	Session  *session.Connection
	Host     core.HostConnection
	Gesture  *gesture.Controller
	OpenedAt time.Time
}

// Registry tracks the single active session. A sid is reserved while its
// session is being negotiated and bound once it is live.
type Registry struct {
	mu     sync.RWMutex
	active core.SessionID
	entry  *Entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Reserve claims the active slot for sid.
func (r *Registry) Reserve(sid core.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != "" {
		log.Warn().Str("module", "app.registry").Str("sid", string(sid)).Str("active", string(r.active)).Msg("reserve rejected")
		return core.ErrSessionActive
	}
	r.active = sid
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("reserved session")
	return nil
}

// Bind attaches the live session to a previous reservation.
func (r *Registry) Bind(sid core.SessionID, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != sid {
		return core.ErrNoSession
	}
	r.entry = e
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound session")
	return nil
}

func (r *Registry) Get(sid core.SessionID) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active != sid || r.entry == nil {
		return nil, false
	}
	return r.entry, true
}

// Active returns the current sid. The entry is nil while negotiation runs.
func (r *Registry) Active() (core.SessionID, *Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active, r.entry, r.active != ""
}

// Release frees the slot if sid holds it and returns the bound entry.
func (r *Registry) Release(sid core.SessionID) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != sid {
		return nil, false
	}
	e := r.entry
	r.active, r.entry = "", nil
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("released session")
	return e, true
}
