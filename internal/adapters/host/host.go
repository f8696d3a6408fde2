// Package host serves the websocket the host application drives a session through.
package host

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/dkeye/realtime-voice/internal/gesture"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Orchestrator is what the controller drives.
type Orchestrator interface {
	Open(ctx context.Context, sid core.SessionID, host core.HostConnection) error
	OnDisconnect(sid core.SessionID)

	Press(sid core.SessionID, src gesture.Source) error
	Release(sid core.SessionID, src gesture.Source) error
	KeyDown(sid core.SessionID, key string, repeat bool) error
	KeyUp(sid core.SessionID, key string) error
	Click(sid core.SessionID) error

	Send(sid core.SessionID, evts []json.RawMessage) error
	SendText(sid core.SessionID, text string, forceResponse bool) error
	SetVolume(sid core.SessionID, v float64) error
	SetAudioMuted(sid core.SessionID, muted bool) error
}

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
	SendRate   float64
	SendBurst  int
}

type HostWSController struct {
	Orch     Orchestrator
	opts     Options
	validate *validator.Validate
}

func NewHostWSController(o Orchestrator, opts Options) *HostWSController {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	if opts.SendRate <= 0 {
		opts.SendRate = 20
	}
	if opts.SendBurst <= 0 {
		opts.SendBurst = 40
	}
	return &HostWSController{Orch: o, opts: opts, validate: newValidator()}
}

var _ core.HostConnection = (*WsHostConn)(nil)

type WsHostConn struct {
	conn    *websocket.Conn
	send    chan core.Frame
	limiter *rate.Limiter

	mu     sync.RWMutex
	closed bool
}

func (c *WsHostConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsHostConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleHost upgrades the request and opens a session for it. Each socket
// gets its own session id; the client token is kept for logging.
func (ctl *HostWSController) HandleHost(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")
	sid := core.SessionID(uuid.NewString())
	logger := log.With().Str("module", "host").Str("sid", string(sid)).Str("client_token", token).Logger()
	logger.Info().Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.opts.ReadLimit)

	conn := &WsHostConn{
		conn:    ws,
		send:    make(chan core.Frame, ctl.opts.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(ctl.opts.SendRate), ctl.opts.SendBurst),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		if err := ctl.Orch.Open(ctx, sid, conn); err != nil {
			logger.Warn().Err(err).Msg("open session failed")
			ctl.sendError(conn, errorCode(err), err)
			// let the error frame drain before closing
			time.AfterFunc(time.Second, conn.Close)
		}
	}()
	go func() {
		defer cancel()
		ctl.readPump(ctx, sid, conn)
		ctl.Orch.OnDisconnect(sid)
	}()
}
