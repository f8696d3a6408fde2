package app

import "github.com/dkeye/realtime-voice/internal/core"

type BackpressureAction int

const (
	// DropEvent discards the frame the host could not take.
	DropEvent BackpressureAction = iota
	// CloseSession tears the session down.
	CloseSession
)

func (a BackpressureAction) String() string {
	switch a {
	case DropEvent:
		return "drop"
	case CloseSession:
		return "close"
	default:
		return "unknown"
	}
}

// Policy decides what happens when a host connection cannot keep up.
type Policy interface {
	OnBackPressure(sid core.SessionID) BackpressureAction
}

type StaticPolicy struct {
	Action BackpressureAction
}

func (p StaticPolicy) OnBackPressure(core.SessionID) BackpressureAction { return p.Action }

// PolicyFor maps the config value onto a policy. Unknown values drop.
func PolicyFor(name string) Policy {
	if name == CloseSession.String() {
		return StaticPolicy{Action: CloseSession}
	}
	return StaticPolicy{Action: DropEvent}
}
