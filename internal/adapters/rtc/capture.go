package rtc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	opusClockRate = 48000
	opusChannels  = 2
	frameDuration = 20 * time.Millisecond
)

// opusSilence is a single 20ms Opus frame of digital silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// ErrCaptureUnavailable is returned when the configured capture source
// cannot be opened.
var ErrCaptureUnavailable = errors.New("capture device unavailable")

// FrameSource yields encoded Opus frames with their playout duration.
// NextFrame returns io.EOF when the source is exhausted.
type FrameSource interface {
	NextFrame() ([]byte, time.Duration, error)
	Close() error
}

type silenceSource struct{}

func (silenceSource) NextFrame() ([]byte, time.Duration, error) {
	return opusSilence, frameDuration, nil
}

func (silenceSource) Close() error { return nil }

// oggSource reads Opus pages from an ogg file, optionally rewinding at EOF.
type oggSource struct {
	f           *os.File
	loop        bool
	reader      *oggreader.OggReader
	lastGranule uint64
}

func openOggSource(path string, loop bool) (*oggSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s := &oggSource{f: f, loop: loop}
	if err := s.rewind(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func (s *oggSource) rewind() error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	reader, _, err := oggreader.NewWith(s.f)
	if err != nil {
		return fmt.Errorf("ogg header: %w", err)
	}
	s.reader = reader
	s.lastGranule = 0
	return nil
}

func (s *oggSource) NextFrame() ([]byte, time.Duration, error) {
	for {
		page, header, err := s.reader.ParseNextPage()
		if errors.Is(err, io.EOF) && s.loop {
			if err := s.rewind(); err != nil {
				return nil, 0, err
			}
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		samples := header.GranulePosition - s.lastGranule
		s.lastGranule = header.GranulePosition
		if samples == 0 {
			// comment header pages carry no audio
			continue
		}
		return page, time.Duration(samples) * time.Second / opusClockRate, nil
	}
}

func (s *oggSource) Close() error { return s.f.Close() }

var _ core.CaptureTrack = (*Capture)(nil)

// Capture is the local microphone track. It paces frames from a FrameSource
// into a pion sample track; while disabled it sends silence instead.
type Capture struct {
	track *webrtc.TrackLocalStaticSample
	src   FrameSource

	enabled atomic.Bool
	stopped atomic.Bool

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	logger zerolog.Logger
}

// NewCapture builds a disabled capture track over src.
func NewCapture(src FrameSource, sid core.SessionID) (*Capture, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: opusClockRate, Channels: opusChannels},
		"audio", "realtime-voice",
	)
	if err != nil {
		return nil, fmt.Errorf("new capture track: %w", err)
	}
	return &Capture{
		track:  track,
		src:    src,
		logger: log.With().Str("module", "capture").Str("sid", string(sid)).Logger(),
	}, nil
}

func (c *Capture) Track() *webrtc.TrackLocalStaticSample { return c.track }

func (c *Capture) Enabled() bool { return c.enabled.Load() }

func (c *Capture) SetEnabled(v bool) {
	if c.stopped.Load() {
		return
	}
	c.enabled.Store(v)
}

func (c *Capture) Stopped() bool { return c.stopped.Load() }

// Start runs the pacing loop until Stop or ctx ends. Start must be called at most once.
func (c *Capture) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.pump(ctx)
}

func (c *Capture) pump(ctx context.Context) {
	defer close(c.done)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		data, dur, err := c.src.NextFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.logger.Info().Msg("capture source exhausted")
			} else {
				c.logger.Error().Err(err).Msg("capture read error, stopping")
			}
			return
		}
		if !c.enabled.Load() {
			data = opusSilence
		}
		if err := c.track.WriteSample(media.Sample{Data: data, Duration: dur}); err != nil {
			c.logger.Warn().Err(err).Msg("write sample failed")
		}
		timer.Reset(dur)
	}
}

// Stop ends the track permanently. Further calls are no-ops.
func (c *Capture) Stop() error {
	var err error
	c.stopOnce.Do(func() {
		c.stopped.Store(true)
		c.enabled.Store(false)
		if c.cancel != nil {
			c.cancel()
			<-c.done
		}
		err = c.src.Close()
		c.logger.Info().Msg("capture stopped")
	})
	return err
}

// Device opens capture sources for new sessions.
type Device struct {
	// Path of an Opus ogg file. Empty means silence.
	Path string
	Loop bool
}

// Acquire opens a fresh capture for sid.
func (d Device) Acquire(_ context.Context, sid core.SessionID) (*Capture, error) {
	var src FrameSource = silenceSource{}
	if d.Path != "" {
		s, err := openOggSource(d.Path, d.Loop)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
		}
		src = s
	}
	c, err := NewCapture(src, sid)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return c, nil
}
