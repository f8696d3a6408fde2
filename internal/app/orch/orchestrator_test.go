package orch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/realtime-voice/internal/app"
	"github.com/dkeye/realtime-voice/internal/app/events"
	"github.com/dkeye/realtime-voice/internal/app/tools"
	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/dkeye/realtime-voice/internal/domain"
	"github.com/dkeye/realtime-voice/internal/gesture"
	"github.com/dkeye/realtime-voice/internal/gesture/gesturetest"
	"github.com/dkeye/realtime-voice/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	mu     sync.Mutex
	frames []map[string]any
	err    error
	closed bool
}

func (h *fakeHost) TrySend(f core.Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	var m map[string]any
	if err := json.Unmarshal(f, &m); err != nil {
		return err
	}
	h.frames = append(h.frames, m)
	return nil
}

func (h *fakeHost) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

func (h *fakeHost) ofType(typ string) []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]any
	for _, f := range h.frames {
		if f["type"] == typ {
			out = append(out, f)
		}
	}
	return out
}

func (h *fakeHost) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

type fakeChannel struct {
	mu      sync.Mutex
	handler func(core.Message)
	sent    []string
	closed  bool
	sentCh  chan string
}

func (c *fakeChannel) SendText(text string) error {
	c.mu.Lock()
	c.sent = append(c.sent, text)
	c.mu.Unlock()
	select {
	case c.sentCh <- text:
	default:
	}
	return nil
}

func (c *fakeChannel) OnMessage(fn func(core.Message)) { c.handler = fn }

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeCapture struct {
	mu      sync.Mutex
	enabled bool
	stopped bool
}

func (f *fakeCapture) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

func (f *fakeCapture) SetEnabled(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = v
}

func (f *fakeCapture) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

type fakeSink struct {
	volume float64
	muted  bool
}

func (s *fakeSink) Volume() float64     { return s.volume }
func (s *fakeSink) SetVolume(v float64) { s.volume = v }
func (s *fakeSink) Muted() bool         { return s.muted }
func (s *fakeSink) SetMuted(m bool)     { s.muted = m }

type fakePeer struct{ closed bool }

func (p *fakePeer) Close() error {
	p.closed = true
	return nil
}

// fakeDialer builds sessions from fakes. gate, when set, blocks Dial until closed.
type fakeDialer struct {
	err     error
	gate    chan struct{}
	early   []core.Message
	token   string
	channel *fakeChannel
	capture *fakeCapture
	peer    *fakePeer
	conn    *session.Connection
}

func (d *fakeDialer) Dial(ctx context.Context, sid core.SessionID, sig core.Signaler) (*session.Connection, error) {
	if d.gate != nil {
		<-d.gate
	}
	if d.err != nil {
		return nil, d.err
	}
	d.token = string(sig.(tokenSignaler))
	d.channel = &fakeChannel{sentCh: make(chan string, 16)}
	d.capture = &fakeCapture{enabled: true}
	d.peer = &fakePeer{}
	d.conn = session.New(sid, &fakeSink{volume: 1}, d.peer, d.channel, d.capture)
	for _, m := range d.early {
		d.channel.handler(m)
	}
	return d.conn, nil
}

type tokenSignaler string

func (tokenSignaler) Exchange(context.Context, string) (string, error) { return "", nil }

type fakeMinter struct {
	err      error
	settings *domain.SessionSettings
}

func (m *fakeMinter) Mint(_ context.Context, s *domain.SessionSettings) (domain.ClientSecret, error) {
	m.settings = s
	if m.err != nil {
		return domain.ClientSecret{}, m.err
	}
	return domain.ClientSecret{Value: "ek_test"}, nil
}

type fixture struct {
	orch   *Orchestrator
	dialer *fakeDialer
	minter *fakeMinter
	sched  *gesturetest.Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	settings, err := domain.NewSessionSettings("gpt-realtime", "marin", 1, "")
	require.NoError(t, err)
	reg := tools.NewRegistry(time.Second)
	require.NoError(t, reg.Register(tools.CurrentTime(func() time.Time {
		return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	})))

	f := &fixture{dialer: &fakeDialer{}, minter: &fakeMinter{}, sched: gesturetest.New()}
	f.orch = &Orchestrator{
		Registry:       app.NewRegistry(),
		Dialer:         f.dialer,
		Minter:         f.minter,
		Signalers:      func(token string) core.Signaler { return tokenSignaler(token) },
		Policy:         app.StaticPolicy{Action: app.DropEvent},
		Events:         events.NewEmitter(),
		Tools:          reg,
		Settings:       *settings,
		GestureOptions: []gesture.Option{gesture.WithScheduler(f.sched)},
	}
	t.Cleanup(f.orch.BindEvents(context.Background()))
	return f
}

func TestOrchestrator_OpenStartsMuted(t *testing.T) {
	f := newFixture(t)
	host := &fakeHost{}

	require.NoError(t, f.orch.Open(context.Background(), "s1", host))

	assert.Equal(t, "ek_test", f.dialer.token)
	require.Len(t, f.minter.settings.Tools, 1)
	assert.Equal(t, "current_time", f.minter.settings.Tools[0].Name)
	assert.False(t, f.dialer.capture.Enabled())

	states := host.ofType("session")
	require.Len(t, states, 2)
	assert.Equal(t, StateConnecting, states[0]["state"])
	assert.Equal(t, StateOpen, states[1]["state"])
	assert.Equal(t, []map[string]any{{"type": "mute", "muted": true}}, host.ofType("mute"))

	st := f.orch.Status()
	assert.True(t, st.Active)
	assert.Equal(t, StateOpen, st.State)
	assert.True(t, st.MicMuted)
	assert.Equal(t, 2, st.Listeners)
}

func TestOrchestrator_SecondSessionRejected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Open(context.Background(), "s1", &fakeHost{}))
	assert.ErrorIs(t, f.orch.Open(context.Background(), "s2", &fakeHost{}), core.ErrSessionActive)
}

func TestOrchestrator_FailuresReleaseSlot(t *testing.T) {
	f := newFixture(t)
	f.minter.err = errors.New("quota")
	err := f.orch.Open(context.Background(), "s1", &fakeHost{})
	assert.ErrorContains(t, err, "quota")
	assert.False(t, f.orch.Status().Active)

	f.minter.err = nil
	f.dialer.err = core.ErrNegotiation
	assert.ErrorIs(t, f.orch.Open(context.Background(), "s1", &fakeHost{}), core.ErrNegotiation)
	assert.False(t, f.orch.Status().Active)
}

func TestOrchestrator_TapUnmutesAndHoldTalks(t *testing.T) {
	f := newFixture(t)
	host := &fakeHost{}
	require.NoError(t, f.orch.Open(context.Background(), "s1", host))

	require.NoError(t, f.orch.Press("s1", gesture.SourcePointer))
	require.NoError(t, f.orch.Release("s1", gesture.SourcePointer))
	assert.True(t, f.dialer.capture.Enabled())
	assert.False(t, f.dialer.conn.MicMuted())

	require.NoError(t, f.orch.Click("s1"))
	assert.True(t, f.dialer.capture.Enabled(), "synthetic click after a tap is suppressed")
	f.sched.Advance(time.Second)

	require.NoError(t, f.orch.KeyDown("s1", " ", false))
	require.NoError(t, f.orch.KeyUp("s1", " "))
	assert.False(t, f.dialer.capture.Enabled(), "space tap toggles back to muted")

	mutes := host.ofType("mute")
	require.Len(t, mutes, 3)
	assert.Equal(t, false, mutes[1]["muted"])
	assert.Equal(t, true, mutes[2]["muted"])
}

func TestOrchestrator_CommandsWithoutSession(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.orch.Press("nope", gesture.SourceKey), core.ErrNoSession)
	assert.ErrorIs(t, f.orch.SetVolume("nope", 1), core.ErrNoSession)
	assert.ErrorIs(t, f.orch.SendText("nope", "hi", true), core.ErrNoSession)
}

func TestOrchestrator_ForwardsEventsToHost(t *testing.T) {
	f := newFixture(t)
	host := &fakeHost{}
	require.NoError(t, f.orch.Open(context.Background(), "s1", host))

	f.dialer.channel.handler(`{"type":"response.audio_transcript.delta","delta":"hi"}`)
	f.dialer.channel.handler(`not json`)

	evts := host.ofType("event")
	require.Len(t, evts, 2)
	assert.Equal(t, map[string]any{"type": "response.audio_transcript.delta", "delta": "hi"}, evts[0]["data"])
	assert.Equal(t, "not json", evts[1]["data"])
}

func TestOrchestrator_RunsToolCalls(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Open(context.Background(), "s1", &fakeHost{}))

	f.dialer.channel.handler(`{"type":"response.function_call_arguments.done","name":"current_time","call_id":"call_9","arguments":"{}"}`)

	var out []string
	for n := 0; n < 2; n++ {
		select {
		case s := <-f.dialer.channel.sentCh:
			out = append(out, s)
		case <-time.After(time.Second):
			t.Fatal("tool output not sent")
		}
	}
	assert.JSONEq(t, `{"type":"conversation.item.create","item":{"type":"function_call_output","call_id":"call_9","output":"{\"time\":\"2026-10-19T09:30:00Z\"}"}}`, out[0])
	assert.JSONEq(t, `{"type":"response.create"}`, out[1])
}

func TestOrchestrator_FramesDuringDialReachListeners(t *testing.T) {
	f := newFixture(t)
	f.dialer.early = []core.Message{
		`{"type":"session.created"}`,
		`{"type":"response.function_call_arguments.done","name":"current_time","call_id":"call_1","arguments":"{}"}`,
	}
	host := &fakeHost{}
	require.NoError(t, f.orch.Open(context.Background(), "s1", host))

	host.mu.Lock()
	types := make([]any, 0, len(host.frames))
	for _, fr := range host.frames {
		types = append(types, fr["type"])
	}
	host.mu.Unlock()
	assert.Equal(t, []any{"session", "session", "mute", "event", "event"}, types)

	evts := host.ofType("event")
	assert.Equal(t, map[string]any{"type": "session.created"}, evts[0]["data"])

	select {
	case s := <-f.dialer.channel.sentCh:
		assert.Contains(t, s, "call_1")
	case <-time.After(time.Second):
		t.Fatal("tool call received during dialing was not answered")
	}
}

func TestOrchestrator_SendText(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Open(context.Background(), "s1", &fakeHost{}))

	require.NoError(t, f.orch.SendText("s1", "hello", true))
	require.NoError(t, f.orch.SendText("s1", "quiet", false))
	require.NoError(t, f.orch.Send("s1", []json.RawMessage{
		json.RawMessage(`{"type":"input_audio_buffer.clear"}`),
		json.RawMessage(`{"type":"response.cancel"}`),
	}))

	sent := f.dialer.channel.sent
	require.Len(t, sent, 5)
	assert.JSONEq(t, `{"type":"conversation.item.create","item":{"type":"message","role":"user","content":[{"type":"input_text","text":"hello"}]}}`, sent[0])
	assert.JSONEq(t, `{"type":"response.create"}`, sent[1])
	assert.Contains(t, sent[2], `"quiet"`)
	assert.Equal(t, `{"type":"input_audio_buffer.clear"}`, sent[3])
	assert.Equal(t, `{"type":"response.cancel"}`, sent[4])
}

func TestOrchestrator_VolumeAndAudioMute(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Open(context.Background(), "s1", &fakeHost{}))

	require.NoError(t, f.orch.SetVolume("s1", 3))
	require.NoError(t, f.orch.SetAudioMuted("s1", true))

	st := f.orch.Status()
	assert.Equal(t, 1.0, st.Volume)
	assert.True(t, st.AudioMuted)
}

func TestOrchestrator_DisconnectReleasesEverything(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Open(context.Background(), "s1", &fakeHost{}))

	f.orch.OnDisconnect("s1")
	f.orch.OnDisconnect("s1")

	assert.True(t, f.dialer.capture.stopped)
	assert.True(t, f.dialer.channel.closed)
	assert.True(t, f.dialer.peer.closed)
	assert.True(t, f.dialer.conn.Closed())
	assert.ErrorIs(t, f.orch.Click("s1"), core.ErrNoSession)
	assert.Equal(t, StateClosed, f.orch.Status().State)

	require.NoError(t, f.orch.Open(context.Background(), "s2", &fakeHost{}))
}

func TestOrchestrator_PeerClosedNotifiesHost(t *testing.T) {
	f := newFixture(t)
	host := &fakeHost{}
	require.NoError(t, f.orch.Open(context.Background(), "s1", host))

	f.orch.OnPeerClosed("s1")

	states := host.ofType("session")
	assert.Equal(t, StateClosed, states[len(states)-1]["state"])
	assert.True(t, f.dialer.conn.Closed())
	f.orch.OnPeerClosed("s1")
}

func TestOrchestrator_DisconnectWhileDialing(t *testing.T) {
	f := newFixture(t)
	f.dialer.gate = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- f.orch.Open(context.Background(), "s1", &fakeHost{}) }()

	require.Eventually(t, func() bool { return f.orch.Status().State == StateConnecting }, time.Second, time.Millisecond)
	f.orch.OnDisconnect("s1")
	close(f.dialer.gate)

	err := <-done
	assert.ErrorIs(t, err, core.ErrClosed)
	assert.True(t, f.dialer.conn.Closed())
	assert.False(t, f.orch.Status().Active)
}

func TestOrchestrator_BackpressureClosePolicy(t *testing.T) {
	f := newFixture(t)
	f.orch.Policy = app.PolicyFor("close")
	host := &fakeHost{}
	require.NoError(t, f.orch.Open(context.Background(), "s1", host))

	host.mu.Lock()
	host.err = core.ErrBackpressure
	host.mu.Unlock()
	f.dialer.channel.handler(`{"type":"response.done"}`)

	require.Eventually(t, host.isClosed, time.Second, time.Millisecond)
	assert.True(t, f.dialer.conn.Closed())
	assert.False(t, f.orch.Status().Active)
}

func TestOrchestrator_BackpressureDropPolicy(t *testing.T) {
	f := newFixture(t)
	host := &fakeHost{}
	require.NoError(t, f.orch.Open(context.Background(), "s1", host))

	host.mu.Lock()
	host.err = core.ErrBackpressure
	host.mu.Unlock()
	f.dialer.channel.handler(`{"type":"response.done"}`)

	time.Sleep(10 * time.Millisecond)
	assert.False(t, host.isClosed())
	assert.False(t, f.dialer.conn.Closed())
}
