package core

import "errors"

var (
	ErrDelivery      = errors.New("control message not delivered")
	ErrClosed        = errors.New("connection closed")
	ErrBackpressure  = errors.New("backpressure")
	ErrSessionActive = errors.New("another session is active")
	ErrNoSession     = errors.New("no active session")
	ErrNegotiation   = errors.New("session negotiation failed")
)
