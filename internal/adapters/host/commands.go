package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/dkeye/realtime-voice/internal/gesture"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var errRateLimited = errors.New("rate limited")

type errorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type pressCmd struct {
	Source string `json:"source" validate:"omitempty,oneof=pointer mouse touch key keyboard"`
}

type keyCmd struct {
	Key    string `json:"key" validate:"required"`
	Repeat bool   `json:"repeat"`
}

type sendCmd struct {
	Events []json.RawMessage `json:"events" validate:"required,min=1,max=64"`
}

type sendTextCmd struct {
	Text          string `json:"text" validate:"required,max=4096"`
	ForceResponse *bool  `json:"force_response"`
}

type volumeCmd struct {
	// out-of-range values are clamped by the session
	Value *float64 `json:"value" validate:"required"`
}

type audioMutedCmd struct {
	Muted *bool `json:"muted" validate:"required"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode unmarshals and validates a command payload, replying with an
// error frame on failure.
func (ctl *HostWSController) decode(c *WsHostConn, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("module", "host").Msg("bad payload")
		ctl.sendJSON(c, errorFrame{Type: "error", Code: "bad_payload", Error: err.Error()})
		return false
	}
	if err := ctl.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		msg := err.Error()
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msg = fmt.Sprintf("%s failed %s", verrs[0].Field(), verrs[0].Tag())
		}
		ctl.sendJSON(c, errorFrame{Type: "error", Code: "bad_payload", Error: msg})
		return false
	}
	return true
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, core.ErrNoSession):
		return "no_session"
	case errors.Is(err, core.ErrSessionActive):
		return "session_active"
	case errors.Is(err, core.ErrNegotiation):
		return "negotiation_failed"
	case errors.Is(err, core.ErrDelivery):
		return "not_delivered"
	case errors.Is(err, errRateLimited):
		return "rate_limited"
	default:
		return "internal"
	}
}

func (ctl *HostWSController) sendError(c *WsHostConn, code string, err error) {
	ctl.sendJSON(c, errorFrame{Type: "error", Code: code, Error: err.Error()})
}

// reply reports err to the host. Successful commands are silent.
func (ctl *HostWSController) reply(c *WsHostConn, err error) {
	if err != nil {
		ctl.sendError(c, errorCode(err), err)
	}
}

func (ctl *HostWSController) handlePress(sid core.SessionID, c *WsHostConn, data []byte, down bool) {
	var p pressCmd
	if !ctl.decode(c, data, &p) {
		return
	}
	src := gesture.SourcePointer
	if p.Source != "" {
		src, _ = gesture.ParseSource(p.Source)
	}
	if down {
		ctl.reply(c, ctl.Orch.Press(sid, src))
		return
	}
	ctl.reply(c, ctl.Orch.Release(sid, src))
}

func (ctl *HostWSController) handleKeyDown(sid core.SessionID, c *WsHostConn, data []byte) {
	var p keyCmd
	if !ctl.decode(c, data, &p) {
		return
	}
	ctl.reply(c, ctl.Orch.KeyDown(sid, p.Key, p.Repeat))
}

func (ctl *HostWSController) handleKeyUp(sid core.SessionID, c *WsHostConn, data []byte) {
	var p keyCmd
	if !ctl.decode(c, data, &p) {
		return
	}
	ctl.reply(c, ctl.Orch.KeyUp(sid, p.Key))
}

func (ctl *HostWSController) handleSend(sid core.SessionID, c *WsHostConn, data []byte) {
	if !c.limiter.Allow() {
		ctl.sendError(c, "rate_limited", errRateLimited)
		return
	}
	var p sendCmd
	if !ctl.decode(c, data, &p) {
		return
	}
	for i, ev := range p.Events {
		if !json.Valid(ev) || len(ev) == 0 || ev[0] != '{' {
			ctl.sendError(c, "bad_payload", fmt.Errorf("events[%d] is not an object", i))
			return
		}
	}
	ctl.reply(c, ctl.Orch.Send(sid, p.Events))
}

func (ctl *HostWSController) handleSendText(sid core.SessionID, c *WsHostConn, data []byte) {
	if !c.limiter.Allow() {
		ctl.sendError(c, "rate_limited", errRateLimited)
		return
	}
	var p sendTextCmd
	if !ctl.decode(c, data, &p) {
		return
	}
	force := p.ForceResponse == nil || *p.ForceResponse
	ctl.reply(c, ctl.Orch.SendText(sid, p.Text, force))
}

func (ctl *HostWSController) handleVolume(sid core.SessionID, c *WsHostConn, data []byte) {
	var p volumeCmd
	if !ctl.decode(c, data, &p) {
		return
	}
	ctl.reply(c, ctl.Orch.SetVolume(sid, *p.Value))
}

func (ctl *HostWSController) handleAudioMuted(sid core.SessionID, c *WsHostConn, data []byte) {
	var p audioMutedCmd
	if !ctl.decode(c, data, &p) {
		return
	}
	ctl.reply(c, ctl.Orch.SetAudioMuted(sid, *p.Muted))
}

func (ctl *HostWSController) handlePing(c *WsHostConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(c, resp)
}
