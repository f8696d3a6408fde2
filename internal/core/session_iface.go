package core

type SessionID string

// Message is one control-channel frame exactly as it crossed the wire.
// The core never parses it; interpretation belongs to listeners.
type Message string

type ListenerID string

// Listener receives every inbound control-channel frame.
type Listener func(Message)
