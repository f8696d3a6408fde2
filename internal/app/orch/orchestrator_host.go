package orch

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/realtime-voice/internal/app"
	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/rs/zerolog/log"
)

// Session states reported to the host.
const (
	StateConnecting = "connecting"
	StateOpen       = "open"
	StateClosed     = "closed"
)

type sessionFrame struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

type muteFrame struct {
	Type  string `json:"type"`
	Muted bool   `json:"muted"`
}

type eventFrame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// forward relays every control-channel frame to the host unchanged.
func (o *Orchestrator) forward(sid core.SessionID, host core.HostConnection) core.Listener {
	return func(msg core.Message) {
		var data any = string(msg)
		if json.Valid([]byte(msg)) {
			data = json.RawMessage(msg)
		}
		o.notify(sid, host, eventFrame{Type: "event", Data: data})
	}
}

// notify may run with the gesture controller locked, so a session close
// triggered by backpressure happens on its own goroutine.
func (o *Orchestrator) notify(sid core.SessionID, host core.HostConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("notify marshal")
		return
	}
	err = host.TrySend(b)
	if err == nil {
		return
	}
	if !errors.Is(err, core.ErrBackpressure) || o.Policy == nil {
		log.Debug().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("host frame not delivered")
		return
	}
	switch o.Policy.OnBackPressure(sid) {
	case app.CloseSession:
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Msg("host too slow, closing session")
		go func() {
			o.OnDisconnect(sid)
			host.Close()
		}()
	case app.DropEvent:
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Msg("host too slow, frame dropped")
	}
}
