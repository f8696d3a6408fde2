package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/realtime-voice/internal/adapters/rtc"
	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/dkeye/realtime-voice/internal/session"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const DefaultDataChannelLabel = "oai-events"

// CaptureDevice hands out a fresh microphone track per session.
type CaptureDevice interface {
	Acquire(ctx context.Context, sid core.SessionID) (*rtc.Capture, error)
}

// Dialer negotiates a realtime session and hands every acquired resource to
// a session.Connection. On failure everything acquired so far is released.
type Dialer struct {
	RTC          webrtc.Configuration
	Label        string
	Device       CaptureDevice
	PlaybackFile string
	Timeout      time.Duration

	// OnPeerClosed fires when the remote side drops an established peer.
	OnPeerClosed func(core.SessionID)
}

// mediaLink closes the peer first so the playback loop sees its track end.
type mediaLink struct {
	peer     *rtc.Peer
	playback *rtc.Playback
}

func (l mediaLink) Close() error {
	return errors.Join(l.peer.Close(), l.playback.Close())
}

func (d *Dialer) Dial(ctx context.Context, sid core.SessionID, sig core.Signaler) (conn *session.Connection, err error) {
	logger := log.With().Str("module", "app.dialer").Str("sid", string(sid)).Logger()

	var cleanup []func()
	defer func() {
		if err == nil {
			return
		}
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
		logger.Warn().Err(err).Msg("session establishment failed")
		err = fmt.Errorf("%w: %w", core.ErrNegotiation, err)
	}()

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	capture, err := d.Device.Acquire(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("acquire capture: %w", err)
	}
	cleanup = append(cleanup, func() { _ = capture.Stop() })

	peer, err := rtc.NewPeer(d.RTC, sid)
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, func() { _ = peer.Close() })

	playback, err := rtc.OpenPlayback(d.PlaybackFile, sid)
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, func() { _ = playback.Close() })

	peer.OnTrack(func(trackCtx context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		if err := playback.Attach(trackCtx, track); err != nil {
			logger.Warn().Err(err).Str("track_id", track.ID()).Msg("ignoring extra remote track")
		}
	})
	if d.OnPeerClosed != nil {
		peer.OnClosed(func() { d.OnPeerClosed(sid) })
	}
	if err := peer.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}
	if err := peer.AddCapture(capture); err != nil {
		return nil, err
	}

	label := d.Label
	if label == "" {
		label = DefaultDataChannelLabel
	}
	dc, err := peer.CreateDataChannel(label)
	if err != nil {
		return nil, err
	}
	capture.Start(context.WithoutCancel(ctx))

	offer, err := peer.CreateOffer(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("offer_len", len(offer.SDP)).Msg("offer ready")

	answer, err := sig.Exchange(ctx, offer.SDP)
	if err != nil {
		return nil, err
	}
	if err := peer.ApplyAnswer(answer); err != nil {
		return nil, err
	}
	if err := dc.WaitOpen(ctx); err != nil {
		return nil, err
	}

	logger.Info().Str("label", label).Msg("session established")
	return session.New(sid, playback, mediaLink{peer: peer, playback: playback}, dc, capture), nil
}
