// Package events routes control-channel frames to handlers by their "type".
package events

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/rs/zerolog/log"
)

// Any subscribes to every event regardless of type.
const Any = "*"

// Event is one decoded frame from a session's control channel.
type Event struct {
	SessionID core.SessionID
	Type      string
	Raw       json.RawMessage
}

// Decode unmarshals the full frame into v.
func (e Event) Decode(v any) error { return json.Unmarshal(e.Raw, v) }

type Handler func(Event)

type subscription struct {
	id uint64
	fn Handler
}

type Emitter struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscription
}

func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[string][]subscription)}
}

// On registers fn for eventType and returns a func that removes it.
func (e *Emitter) On(eventType string, fn Handler) (unsubscribe func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs[eventType] = append(e.subs[eventType], subscription{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.off(eventType, id) })
	}
}

func (e *Emitter) off(eventType string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := e.subs[eventType]
	for i, s := range subs {
		if s.id == id {
			e.subs[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(e.subs[eventType]) == 0 {
		delete(e.subs, eventType)
	}
}

// Listener adapts the emitter to a session listener for sid.
func (e *Emitter) Listener(sid core.SessionID) core.Listener {
	return func(msg core.Message) { e.Dispatch(sid, msg) }
}

// Dispatch decodes the type field of msg and runs the matching handlers,
// then the Any handlers. Malformed frames are dropped.
func (e *Emitter) Dispatch(sid core.SessionID, msg core.Message) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(msg), &head); err != nil || head.Type == "" {
		log.Warn().Str("module", "events").Str("sid", string(sid)).Err(err).Msg("dropping malformed event")
		return
	}
	evt := Event{SessionID: sid, Type: head.Type, Raw: json.RawMessage(msg)}

	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.subs[head.Type])+len(e.subs[Any]))
	for _, s := range e.subs[head.Type] {
		handlers = append(handlers, s.fn)
	}
	for _, s := range e.subs[Any] {
		handlers = append(handlers, s.fn)
	}
	e.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}
}
