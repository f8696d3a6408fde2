package rtc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Peer wraps the client side of one pion PeerConnection.
type Peer struct {
	pc     *webrtc.PeerConnection
	sid    core.SessionID
	cancel context.CancelFunc

	onTrack  func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
	onClosed func()

	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error

	logger zerolog.Logger
}

// Configuration builds a pion configuration from STUN/TURN URLs.
func Configuration(iceServers []string) webrtc.Configuration {
	cfg := webrtc.Configuration{}
	if len(iceServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: iceServers}}
	}
	return cfg
}

func NewPeer(cfg webrtc.Configuration, sid core.SessionID) (*Peer, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	return &Peer{
		pc:     pc,
		sid:    sid,
		logger: log.With().Str("module", "webrtc").Str("sid", string(sid)).Logger(),
	}, nil
}

// Start wires the connection callbacks. Remote tracks receive a context that
// ends when the peer is closed.
func (p *Peer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		p.logger.Info().Str("ice_state", s.String()).Msg("ICE state")
	})

	p.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		p.logger.Info().Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed {
			cancel()
			if !p.closing.Load() && p.onClosed != nil {
				p.onClosed()
			}
		}
	})

	p.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		p.logger.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		if p.onTrack != nil {
			p.onTrack(ctx, track, receiver)
		}
	})

	return nil
}

// CreateDataChannel opens the ordered, reliable control channel.
func (p *Peer) CreateDataChannel(label string) (*DataChannel, error) {
	ordered := true
	dc, err := p.pc.CreateDataChannel(label, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, fmt.Errorf("create data channel: %w", err)
	}
	return newDataChannel(dc, p.sid), nil
}

// AddCapture attaches the local capture track and drains its RTCP.
func (p *Peer) AddCapture(c *Capture) error {
	sender, err := p.pc.AddTrack(c.Track())
	if err != nil {
		return fmt.Errorf("add capture track: %w", err)
	}
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return nil
}

// CreateOffer sets the local offer and waits for ICE gathering, so the
// returned description carries every candidate.
func (p *Peer) CreateOffer(ctx context.Context) (*webrtc.SessionDescription, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return nil, fmt.Errorf("ice gathering: %w", ctx.Err())
	}
	return p.pc.LocalDescription(), nil
}

func (p *Peer) ApplyAnswer(sdp string) error {
	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
	if err := p.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

func (p *Peer) LocalDescription() *webrtc.SessionDescription {
	return p.pc.LocalDescription()
}

// Close is idempotent. A locally initiated close does not fire OnClosed.
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		p.closing.Store(true)
		if p.cancel != nil {
			p.cancel()
		}
		if err := p.pc.Close(); err != nil {
			p.logger.Error().Err(err).Msg("close error")
			p.closeErr = err
			return
		}
		p.logger.Info().Msg("closed")
	})
	return p.closeErr
}

// OnTrack sets application-level callback for remote tracks.
func (p *Peer) OnTrack(fn func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	p.onTrack = fn
}

// OnClosed sets a callback for a connection that failed or was closed remotely.
func (p *Peer) OnClosed(fn func()) { p.onClosed = fn }
