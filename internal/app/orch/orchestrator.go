package orch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/realtime-voice/internal/app"
	"github.com/dkeye/realtime-voice/internal/app/events"
	"github.com/dkeye/realtime-voice/internal/app/tools"
	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/dkeye/realtime-voice/internal/domain"
	"github.com/dkeye/realtime-voice/internal/gesture"
	"github.com/dkeye/realtime-voice/internal/session"
	"github.com/rs/zerolog/log"
)

// Listener ids installed on every session.
const (
	hostListener   core.ListenerID = "host"
	eventsListener core.ListenerID = "events"
)

type SecretMinter interface {
	Mint(ctx context.Context, settings *domain.SessionSettings) (domain.ClientSecret, error)
}

type SessionDialer interface {
	Dial(ctx context.Context, sid core.SessionID, sig core.Signaler) (*session.Connection, error)
}

// SignalerFactory builds a signaler bound to one ephemeral token.
type SignalerFactory func(token string) core.Signaler

type Orchestrator struct {
	Registry  *app.Registry
	Dialer    SessionDialer
	Minter    SecretMinter
	Signalers SignalerFactory
	Policy    app.Policy
	Events    *events.Emitter
	Tools     *tools.Registry

	// Settings is the template every session is minted from.
	Settings       domain.SessionSettings
	GestureOptions []gesture.Option
}

// Open negotiates a session for sid and binds it to host. The session
// starts with the microphone muted.
func (o *Orchestrator) Open(ctx context.Context, sid core.SessionID, host core.HostConnection) error {
	logger := log.With().Str("module", "orch").Str("sid", string(sid)).Logger()
	if err := o.Registry.Reserve(sid); err != nil {
		return err
	}
	o.notify(sid, host, sessionFrame{Type: "session", State: StateConnecting})

	settings := o.Settings
	if o.Tools != nil {
		settings.Tools = o.Tools.Specs()
	}
	secret, err := o.Minter.Mint(ctx, &settings)
	if err != nil {
		o.Registry.Release(sid)
		return fmt.Errorf("mint client secret: %w", err)
	}

	conn, err := o.Dialer.Dial(ctx, sid, o.Signalers(secret.Value))
	if err != nil {
		o.Registry.Release(sid)
		return err
	}

	ctl := gesture.New(func(muted bool) {
		conn.SetMicMuted(muted)
		o.notify(sid, host, muteFrame{Type: "mute", Muted: muted})
	}, o.GestureOptions...)
	conn.SetMicMuted(true)

	conn.AddEventListener(hostListener, o.forward(sid, host))
	if o.Events != nil {
		conn.AddEventListener(eventsListener, o.Events.Listener(sid))
	}

	entry := &app.Entry{Session: conn, Host: host, Gesture: ctl, OpenedAt: time.Now()}
	if err := o.Registry.Bind(sid, entry); err != nil {
		// the host went away while negotiating
		ctl.Close()
		conn.Close()
		logger.Info().Msg("session abandoned during negotiation")
		return fmt.Errorf("bind session: %w", errors.Join(err, core.ErrClosed))
	}

	o.notify(sid, host, sessionFrame{Type: "session", State: StateOpen})
	o.notify(sid, host, muteFrame{Type: "mute", Muted: true})
	// frames held since the data channel opened reach the listeners only now
	conn.Start()
	logger.Info().Msg("session open")
	return nil
}

// OnDisconnect releases every resource of sid. It is the host's teardown
// request and is safe to call for unknown or already closed sessions.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	e, ok := o.Registry.Release(sid)
	if !ok || e == nil {
		return
	}
	e.Gesture.Close()
	e.Session.Close()
	log.Info().Str("module", "orch").Str("sid", string(sid)).Dur("uptime", time.Since(e.OpenedAt)).Msg("session closed")
}

// OnPeerClosed handles a peer connection that failed or was dropped remotely.
func (o *Orchestrator) OnPeerClosed(sid core.SessionID) {
	e, ok := o.Registry.Get(sid)
	if !ok {
		return
	}
	log.Warn().Str("module", "orch").Str("sid", string(sid)).Msg("peer connection lost")
	o.notify(sid, e.Host, sessionFrame{Type: "session", State: StateClosed})
	o.OnDisconnect(sid)
}

// BindEvents subscribes the tool runner and model error logging.
func (o *Orchestrator) BindEvents(ctx context.Context) (unsubscribe func()) {
	if o.Events == nil {
		return func() {}
	}
	offs := []func(){
		o.Events.On("error", func(evt events.Event) {
			log.Warn().Str("module", "orch").Str("sid", string(evt.SessionID)).RawJSON("event", evt.Raw).Msg("model reported an error")
		}),
	}
	if o.Tools != nil {
		offs = append(offs, o.Tools.Bind(ctx, o.Events, func(sid core.SessionID) (tools.Sender, bool) {
			e, ok := o.Registry.Get(sid)
			if !ok {
				return nil, false
			}
			return e.Session, true
		}))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func (o *Orchestrator) entry(sid core.SessionID) (*app.Entry, error) {
	e, ok := o.Registry.Get(sid)
	if !ok {
		return nil, core.ErrNoSession
	}
	return e, nil
}
