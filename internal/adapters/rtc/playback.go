package rtc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrAlreadyAttached = errors.New("playback already attached")

// RTPWriter receives the remote audio. oggwriter.OggWriter satisfies it.
type RTPWriter interface {
	WriteRTP(pkt *rtp.Packet) error
	Close() error
}

var _ core.PlaybackSink = (*Playback)(nil)

// Playback is the output element for remote audio. Encoded Opus cannot be
// attenuated without transcoding, so a muted sink or zero volume drops
// packets and any other volume passes them through unchanged.
type Playback struct {
	mu     sync.RWMutex
	volume float64
	muted  bool

	attached atomic.Bool
	done     chan struct{}

	writeMu   sync.Mutex
	out       RTPWriter
	closed    bool
	closeOnce sync.Once
	closeErr  error

	logger zerolog.Logger
}

func NewPlayback(out RTPWriter, sid core.SessionID) *Playback {
	return &Playback{
		volume: 1,
		out:    out,
		done:   make(chan struct{}),
		logger: log.With().Str("module", "playback").Str("sid", string(sid)).Logger(),
	}
}

// OpenPlayback records to an ogg file at path, or discards audio when path is empty.
func OpenPlayback(path string, sid core.SessionID) (*Playback, error) {
	var (
		w   *oggwriter.OggWriter
		err error
	)
	if path == "" {
		w, err = oggwriter.NewWith(discard{}, opusClockRate, opusChannels)
	} else {
		w, err = oggwriter.New(path, opusClockRate, opusChannels)
	}
	if err != nil {
		return nil, fmt.Errorf("open playback: %w", err)
	}
	return NewPlayback(w, sid), nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
func (discard) Close() error                { return nil }

var _ io.WriteCloser = discard{}

func (p *Playback) Volume() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume
}

func (p *Playback) SetVolume(v float64) {
	if math.IsNaN(v) {
		v = 0
	}
	p.mu.Lock()
	p.volume = min(max(v, 0), 1)
	p.mu.Unlock()
}

func (p *Playback) Muted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.muted
}

func (p *Playback) SetMuted(m bool) {
	p.mu.Lock()
	p.muted = m
	p.mu.Unlock()
}

func (p *Playback) audible() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.muted && p.volume > 0
}

// Attach binds the first remote audio track. Later tracks are rejected.
func (p *Playback) Attach(ctx context.Context, track *webrtc.TrackRemote) error {
	return p.attach(ctx, func() (*rtp.Packet, error) {
		pkt, _, err := track.ReadRTP()
		return pkt, err
	})
}

func (p *Playback) attach(ctx context.Context, read func() (*rtp.Packet, error)) error {
	if !p.attached.CompareAndSwap(false, true) {
		return ErrAlreadyAttached
	}
	go p.loop(ctx, read)
	return nil
}

// Done is closed when the attached track ends.
func (p *Playback) Done() <-chan struct{} { return p.done }

func (p *Playback) loop(ctx context.Context, read func() (*rtp.Packet, error)) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("playback ctx done")
			return
		default:
		}
		pkt, err := read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.logger.Warn().Err(err).Msg("playback read RTP error, stopping")
			}
			return
		}
		if !p.audible() {
			continue
		}
		if err := p.write(pkt); err != nil {
			p.logger.Error().Err(err).Msg("playback write error, stopping")
			return
		}
	}
}

func (p *Playback) write(pkt *rtp.Packet) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.closed {
		return core.ErrClosed
	}
	return p.out.WriteRTP(pkt)
}

// Close finalizes the output. It is safe to call more than once.
func (p *Playback) Close() error {
	p.closeOnce.Do(func() {
		p.writeMu.Lock()
		defer p.writeMu.Unlock()
		p.closed = true
		p.closeErr = p.out.Close()
	})
	return p.closeErr
}
