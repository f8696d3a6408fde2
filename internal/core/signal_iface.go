package core

//go:generate mockgen -source=signal_iface.go -destination=mocks/mock_signal.go -package=mocks

import "context"

// Frame is a raw payload written to a host connection.
type Frame []byte

// HostConnection abstracts the transport to the host application.
// Owned by the adapter; the adapter must Close() it.
type HostConnection interface {
	TrySend(Frame) error
	Close()
}

// ControlChannel is the ordered, reliable side-channel negotiated with the remote model.
type ControlChannel interface {
	// SendText transmits one frame; it fails unless the channel is open.
	SendText(text string) error
	// OnMessage installs the single inbound handler.
	OnMessage(func(Message))
	Close() error
}

// Signaler trades a local offer for the remote answer.
type Signaler interface {
	Exchange(ctx context.Context, offerSDP string) (answerSDP string, err error)
}
