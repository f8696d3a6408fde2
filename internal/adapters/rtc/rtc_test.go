package rtc

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu     sync.Mutex
	pkts   []*rtp.Packet
	closes int
}

func (w *recordingWriter) WriteRTP(pkt *rtp.Packet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pkts = append(w.pkts, pkt)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closes++
	return nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pkts)
}

// packetFeed serves packets from a channel and returns io.EOF once it is closed.
func packetFeed(ch <-chan *rtp.Packet) func() (*rtp.Packet, error) {
	return func() (*rtp.Packet, error) {
		pkt, ok := <-ch
		if !ok {
			return nil, io.EOF
		}
		return pkt, nil
	}
}

func TestPlayback_VolumeClamp(t *testing.T) {
	p := NewPlayback(&recordingWriter{}, "s1")
	assert.Equal(t, 1.0, p.Volume())

	p.SetVolume(1.7)
	assert.Equal(t, 1.0, p.Volume())
	p.SetVolume(-3)
	assert.Equal(t, 0.0, p.Volume())
	p.SetVolume(0.4)
	assert.Equal(t, 0.4, p.Volume())

	p.SetMuted(true)
	assert.True(t, p.Muted())
}

// stepFeed hands packets to the playback loop one at a time. wait returns
// once the loop has finished with the previous packet.
type stepFeed struct {
	ready chan struct{}
	pkts  chan *rtp.Packet
}

func newStepFeed() *stepFeed {
	return &stepFeed{ready: make(chan struct{}), pkts: make(chan *rtp.Packet)}
}

func (f *stepFeed) read() (*rtp.Packet, error) {
	f.ready <- struct{}{}
	pkt, ok := <-f.pkts
	if !ok {
		return nil, io.EOF
	}
	return pkt, nil
}

func (f *stepFeed) wait()           { <-f.ready }
func (f *stepFeed) push(seq uint16) { f.pkts <- &rtp.Packet{Header: rtp.Header{SequenceNumber: seq}} }
func (f *stepFeed) finish()         { f.wait(); close(f.pkts) }

func TestPlayback_ForwardsUnlessMuted(t *testing.T) {
	w := &recordingWriter{}
	p := NewPlayback(w, "s1")
	f := newStepFeed()
	require.NoError(t, p.attach(context.Background(), f.read))

	f.wait()
	f.push(1)
	f.wait()
	p.SetMuted(true)
	f.push(2)
	f.wait()
	p.SetMuted(false)
	p.SetVolume(0)
	f.push(3)
	f.wait()
	p.SetVolume(0.5)
	f.push(4)
	f.finish()

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("playback loop did not stop")
	}
	require.Equal(t, 2, w.count())
	assert.Equal(t, uint16(1), w.pkts[0].SequenceNumber)
	assert.Equal(t, uint16(4), w.pkts[1].SequenceNumber)
}

func TestPlayback_AttachOnce(t *testing.T) {
	p := NewPlayback(&recordingWriter{}, "s1")
	ch := make(chan *rtp.Packet)
	defer close(ch)

	require.NoError(t, p.attach(context.Background(), packetFeed(ch)))
	assert.ErrorIs(t, p.attach(context.Background(), packetFeed(ch)), ErrAlreadyAttached)
}

func TestPlayback_CloseIdempotent(t *testing.T) {
	w := &recordingWriter{}
	p := NewPlayback(w, "s1")

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closes)
	assert.ErrorIs(t, p.write(&rtp.Packet{}), core.ErrClosed)
}

func TestOpenPlayback_Discard(t *testing.T) {
	p, err := OpenPlayback("", "s1")
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestDevice_MissingFile(t *testing.T) {
	d := Device{Path: filepath.Join(t.TempDir(), "nope.ogg")}
	_, err := d.Acquire(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrCaptureUnavailable)
}

func TestCapture_EnableAndStop(t *testing.T) {
	c, err := Device{}.Acquire(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, c.Enabled(), "capture starts disabled")

	c.Start(context.Background())
	c.SetEnabled(true)
	assert.True(t, c.Enabled())

	require.NoError(t, c.Stop())
	require.NoError(t, c.Stop())
	assert.True(t, c.Stopped())
	assert.False(t, c.Enabled())

	c.SetEnabled(true)
	assert.False(t, c.Enabled(), "stopped capture cannot be re-enabled")
}

func TestCapture_StopWithoutStart(t *testing.T) {
	c, err := Device{}.Acquire(context.Background(), "s1")
	require.NoError(t, err)
	assert.NoError(t, c.Stop())
}

type failingSource struct{ closed bool }

func (s *failingSource) NextFrame() ([]byte, time.Duration, error) {
	return nil, 0, errors.New("device lost")
}

func (s *failingSource) Close() error {
	s.closed = true
	return nil
}

func TestCapture_SourceErrorEndsPump(t *testing.T) {
	src := &failingSource{}
	c, err := NewCapture(src, "s1")
	require.NoError(t, err)

	c.Start(context.Background())
	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("pump did not stop")
	}
	require.NoError(t, c.Stop())
	assert.True(t, src.closed)
}

func newTestPeer(t *testing.T) *Peer {
	t.Helper()
	p, err := NewPeer(Configuration(nil), "s1")
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPeer_OfferCarriesAudioAndData(t *testing.T) {
	p := newTestPeer(t)
	c, err := Device{}.Acquire(context.Background(), "s1")
	require.NoError(t, err)
	defer func() { _ = c.Stop() }()

	require.NoError(t, p.AddCapture(c))
	dc, err := p.CreateDataChannel("oai-events")
	require.NoError(t, err)
	assert.Equal(t, "oai-events", dc.Label())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	offer, err := p.CreateOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, webrtc.SDPTypeOffer, offer.Type)
	assert.Contains(t, offer.SDP, "m=audio")
	assert.Contains(t, offer.SDP, "m=application")
}

func TestPeer_ApplyAnswerRejectsGarbage(t *testing.T) {
	p := newTestPeer(t)
	_, err := p.CreateDataChannel("oai-events")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = p.CreateOffer(ctx)
	require.NoError(t, err)

	assert.Error(t, p.ApplyAnswer("not sdp"))
}

func TestPeer_CloseIdempotentAndSilent(t *testing.T) {
	p, err := NewPeer(Configuration([]string{"stun:stun.example.org:3478"}), "s1")
	require.NoError(t, err)
	var fired bool
	p.OnClosed(func() { fired = true })
	require.NoError(t, p.Start(context.Background()))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	time.Sleep(20 * time.Millisecond)
	assert.False(t, fired, "local close does not report a remote hang-up")
}

func TestDataChannel_SendBeforeOpen(t *testing.T) {
	p := newTestPeer(t)
	dc, err := p.CreateDataChannel("oai-events")
	require.NoError(t, err)

	assert.ErrorIs(t, dc.SendText("{}"), core.ErrClosed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, dc.WaitOpen(ctx), context.Canceled)
}

func TestDataChannel_HoldsFramesUntilHandler(t *testing.T) {
	p := newTestPeer(t)
	dc, err := p.CreateDataChannel("oai-events")
	require.NoError(t, err)

	dc.receive(core.Message(`{"type":"session.created"}`))
	dc.receive(core.Message(`{"type":"session.updated"}`))

	var got []core.Message
	dc.OnMessage(func(m core.Message) { got = append(got, m) })
	dc.receive(core.Message(`{"type":"response.done"}`))

	assert.Equal(t, []core.Message{
		`{"type":"session.created"}`,
		`{"type":"session.updated"}`,
		`{"type":"response.done"}`,
	}, got)
}

func TestDataChannel_PendingBounded(t *testing.T) {
	p := newTestPeer(t)
	dc, err := p.CreateDataChannel("oai-events")
	require.NoError(t, err)

	for n := 0; n < maxPending+5; n++ {
		dc.receive("x")
	}
	assert.Len(t, dc.pending, maxPending)
}
