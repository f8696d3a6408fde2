package core

//go:generate mockgen -source=media_iface.go -destination=mocks/mock_media.go -package=mocks

// CaptureTrack is the local microphone source.
type CaptureTrack interface {
	// Enabled reports whether captured audio is transmitted.
	Enabled() bool
	SetEnabled(bool)
	// Stop releases the device. Further calls are no-ops.
	Stop() error
}

// PlaybackSink renders the remote audio stream.
type PlaybackSink interface {
	Volume() float64
	SetVolume(float64)
	Muted() bool
	SetMuted(bool)
}

// PeerLink is the negotiated peer connection.
type PeerLink interface {
	Close() error
}
