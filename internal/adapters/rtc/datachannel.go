package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxPending bounds the frames held while no handler is installed.
const maxPending = 256

var _ core.ControlChannel = (*DataChannel)(nil)

// DataChannel adapts a pion data channel to core.ControlChannel. Frames that
// arrive before OnMessage is called are held and replayed in order.
type DataChannel struct {
	dc *webrtc.DataChannel

	open      chan struct{}
	openOnce  sync.Once
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	handler func(core.Message)
	pending []core.Message

	logger zerolog.Logger
}

func newDataChannel(dc *webrtc.DataChannel, sid core.SessionID) *DataChannel {
	d := &DataChannel{
		dc:     dc,
		open:   make(chan struct{}),
		closed: make(chan struct{}),
		logger: log.With().Str("module", "webrtc.dc").Str("sid", string(sid)).Str("label", dc.Label()).Logger(),
	}
	dc.OnOpen(func() {
		d.logger.Info().Msg("data channel open")
		d.openOnce.Do(func() { close(d.open) })
	})
	dc.OnClose(func() {
		d.logger.Info().Msg("data channel closed")
		d.closeOnce.Do(func() { close(d.closed) })
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		d.receive(core.Message(msg.Data))
	})
	return d
}

func (d *DataChannel) Label() string { return d.dc.Label() }

// WaitOpen blocks until the channel is open, closed, or ctx ends.
func (d *DataChannel) WaitOpen(ctx context.Context) error {
	select {
	case <-d.open:
		return nil
	case <-d.closed:
		return fmt.Errorf("data channel %q: %w", d.dc.Label(), core.ErrClosed)
	case <-ctx.Done():
		return fmt.Errorf("data channel %q open: %w", d.dc.Label(), ctx.Err())
	}
}

func (d *DataChannel) SendText(text string) error {
	if state := d.dc.ReadyState(); state != webrtc.DataChannelStateOpen {
		return fmt.Errorf("data channel %s: %w", state, core.ErrClosed)
	}
	return d.dc.SendText(text)
}

// OnMessage installs the inbound handler and replays held frames.
func (d *DataChannel) OnMessage(fn func(core.Message)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = fn
	pending := d.pending
	d.pending = nil
	for _, m := range pending {
		fn(m)
	}
}

func (d *DataChannel) Close() error {
	return d.dc.Close()
}

func (d *DataChannel) receive(m core.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handler != nil {
		d.handler(m)
		return
	}
	if len(d.pending) == maxPending {
		d.logger.Warn().Msg("no handler installed, dropping oldest frame")
		d.pending = d.pending[1:]
	}
	d.pending = append(d.pending, m)
}
