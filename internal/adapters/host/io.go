package host

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *HostWSController) writePump(ctx context.Context, c *WsHostConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "host").Msg("writePump ctx done")
			c.Close()
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "host").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "host").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "host").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *HostWSController) readPump(ctx context.Context, sid core.SessionID, c *WsHostConn) {
	defer func() {
		log.Info().Str("module", "host").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
	}()

	pongWait := ctl.opts.PingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "host").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "host").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
			ctl.handleCommand(sid, c, data)
		}
	}
}

func (ctl *HostWSController) handleCommand(sid core.SessionID, c *WsHostConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "host").Msg("bad json")
		ctl.sendJSON(c, errorFrame{Type: "error", Code: "bad_json", Error: err.Error()})
		return
	}

	switch env.Type {
	case "press":
		ctl.handlePress(sid, c, data, true)
	case "release":
		ctl.handlePress(sid, c, data, false)
	case "keydown":
		ctl.handleKeyDown(sid, c, data)
	case "keyup":
		ctl.handleKeyUp(sid, c, data)
	case "click":
		ctl.reply(c, ctl.Orch.Click(sid))
	case "send":
		ctl.handleSend(sid, c, data)
	case "send_text":
		ctl.handleSendText(sid, c, data)
	case "volume":
		ctl.handleVolume(sid, c, data)
	case "audio_muted":
		ctl.handleAudioMuted(sid, c, data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "host").Str("type", env.Type).Msg("unknown command")
		ctl.sendJSON(c, errorFrame{Type: "error", Code: "unknown_command", Error: env.Type})
	}
}

func (ctl *HostWSController) sendJSON(c *WsHostConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "host").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
