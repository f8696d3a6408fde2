// Package session owns one negotiated realtime session: playback, capture,
// control channel and the listener fan-out.
package session

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"sync"
	"sync/atomic"

	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxHeld bounds the inbound frames kept before Start.
const maxHeld = 256

// Connection is the single owner of every resource of a live session.
// After Close all operations become no-ops.
type Connection struct {
	sid     core.SessionID
	sink    core.PlaybackSink
	peer    core.PeerLink
	channel core.ControlChannel
	capture core.CaptureTrack

	mu        sync.RWMutex
	listeners map[core.ListenerID]core.Listener

	// deliverMu keeps held and live frames in arrival order.
	deliverMu sync.Mutex
	started   bool
	held      []core.Message

	closeOnce sync.Once
	closed    atomic.Bool

	logger zerolog.Logger
}

// New takes ownership of already-negotiated resources. The inbound handler
// is installed here; frames are held until Start so listeners registered
// in between see every frame from the beginning of the session.
func New(
	sid core.SessionID,
	sink core.PlaybackSink,
	peer core.PeerLink,
	channel core.ControlChannel,
	capture core.CaptureTrack,
) *Connection {
	c := &Connection{
		sid:       sid,
		sink:      sink,
		peer:      peer,
		channel:   channel,
		capture:   capture,
		listeners: make(map[core.ListenerID]core.Listener),
		logger:    log.With().Str("module", "session").Str("sid", string(sid)).Logger(),
	}
	if channel != nil {
		channel.OnMessage(c.dispatch)
	}
	return c
}

func (c *Connection) ID() core.SessionID { return c.sid }

// Start replays held frames to the registered listeners and delivers every
// later frame as it arrives. Calls after the first are no-ops.
func (c *Connection) Start() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if c.started {
		return
	}
	c.started = true
	held := c.held
	c.held = nil
	for _, m := range held {
		c.fanOut(m)
	}
}

func (c *Connection) Closed() bool { return c.closed.Load() }

// Close stops the capture, closes the control channel and the peer link.
// Every step runs even when an earlier one fails.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.logger.Info().Msg("closing session")

		if c.capture != nil {
			if err := c.capture.Stop(); err != nil {
				c.logger.Warn().Err(err).Msg("stop capture")
			}
		}
		if c.channel != nil {
			if err := c.channel.Close(); err != nil {
				c.logger.Warn().Err(err).Msg("close control channel")
			}
		}
		if c.peer != nil {
			if err := c.peer.Close(); err != nil {
				c.logger.Warn().Err(err).Msg("close peer")
			}
		}

		c.mu.Lock()
		clear(c.listeners)
		c.mu.Unlock()
	})
}

func (c *Connection) Volume() float64 {
	if c.sink == nil {
		return 0
	}
	return c.sink.Volume()
}

// SetVolume clamps v to [0,1] before applying it.
func (c *Connection) SetVolume(v float64) {
	if c.closed.Load() || c.sink == nil {
		return
	}
	c.sink.SetVolume(clampVolume(v))
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func (c *Connection) AudioMuted() bool {
	if c.sink == nil {
		return false
	}
	return c.sink.Muted()
}

func (c *Connection) SetAudioMuted(muted bool) {
	if c.closed.Load() || c.sink == nil {
		return
	}
	c.sink.SetMuted(muted)
}

func (c *Connection) MicMuted() bool {
	if c.capture == nil {
		return true
	}
	return !c.capture.Enabled()
}

// SetMicMuted toggles transmission without releasing the device.
func (c *Connection) SetMicMuted(muted bool) {
	if c.closed.Load() || c.capture == nil {
		return
	}
	c.capture.SetEnabled(!muted)
	c.logger.Debug().Bool("mic_muted", muted).Msg("mic state")
}

// Send encodes msg as JSON and transmits it as one frame. core.Message and
// json.RawMessage values go out verbatim.
func (c *Connection) Send(msg any) error {
	if c.closed.Load() {
		c.logger.Debug().Msg("send after close ignored")
		return nil
	}
	text, err := encode(msg)
	if err != nil {
		return err
	}
	if c.channel == nil {
		return fmt.Errorf("%w: %w", core.ErrDelivery, core.ErrClosed)
	}
	c.logger.Debug().Str("event", text).Msg("sending event")
	if err := c.channel.SendText(text); err != nil {
		return fmt.Errorf("%w: %w", core.ErrDelivery, err)
	}
	return nil
}

// SendBatch sends each message as its own frame, in order, stopping at the
// first failure.
func (c *Connection) SendBatch(msgs ...any) error {
	for i, m := range msgs {
		if err := c.Send(m); err != nil {
			return fmt.Errorf("batch message %d: %w", i, err)
		}
	}
	return nil
}

func encode(msg any) (string, error) {
	switch m := msg.(type) {
	case core.Message:
		return string(m), nil
	case json.RawMessage:
		return string(m), nil
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode control message: %w", err)
	}
	return string(b), nil
}

// AddEventListener registers l under id, replacing any previous listener.
func (c *Connection) AddEventListener(id core.ListenerID, l core.Listener) {
	if c.closed.Load() || l == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[id] = l
}

func (c *Connection) RemoveEventListener(id core.ListenerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listeners, id)
}

func (c *Connection) ListenerCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listeners)
}

func (c *Connection) dispatch(msg core.Message) {
	if c.closed.Load() {
		return
	}
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if !c.started {
		if len(c.held) == maxHeld {
			c.logger.Warn().Msg("session not started, dropping oldest held frame")
			c.held = c.held[1:]
		}
		c.held = append(c.held, msg)
		return
	}
	c.fanOut(msg)
}

func (c *Connection) fanOut(msg core.Message) {
	if c.closed.Load() {
		return
	}
	c.mu.RLock()
	snapshot := maps.Clone(c.listeners)
	c.mu.RUnlock()

	for id, l := range snapshot {
		c.deliver(id, l, msg)
	}
}

func (c *Connection) deliver(id core.ListenerID, l core.Listener, msg core.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Str("listener", string(id)).Interface("panic", r).Msg("listener panicked")
		}
	}()
	l(msg)
}
