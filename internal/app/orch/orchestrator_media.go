package orch

import (
	"encoding/json"
	"time"

	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/dkeye/realtime-voice/internal/gesture"
)

// Press and friends feed host input into the session's gesture controller.
func (o *Orchestrator) Press(sid core.SessionID, src gesture.Source) error {
	e, err := o.entry(sid)
	if err != nil {
		return err
	}
	e.Gesture.Press(src)
	return nil
}

func (o *Orchestrator) Release(sid core.SessionID, src gesture.Source) error {
	e, err := o.entry(sid)
	if err != nil {
		return err
	}
	e.Gesture.Release(src)
	return nil
}

func (o *Orchestrator) KeyDown(sid core.SessionID, key string, repeat bool) error {
	e, err := o.entry(sid)
	if err != nil {
		return err
	}
	e.Gesture.KeyDown(key, repeat)
	return nil
}

func (o *Orchestrator) KeyUp(sid core.SessionID, key string) error {
	e, err := o.entry(sid)
	if err != nil {
		return err
	}
	e.Gesture.KeyUp(key)
	return nil
}

func (o *Orchestrator) Click(sid core.SessionID) error {
	e, err := o.entry(sid)
	if err != nil {
		return err
	}
	e.Gesture.Click()
	return nil
}

func (o *Orchestrator) SetVolume(sid core.SessionID, v float64) error {
	e, err := o.entry(sid)
	if err != nil {
		return err
	}
	e.Session.SetVolume(v)
	return nil
}

func (o *Orchestrator) SetAudioMuted(sid core.SessionID, muted bool) error {
	e, err := o.entry(sid)
	if err != nil {
		return err
	}
	e.Session.SetAudioMuted(muted)
	return nil
}

// Send delivers raw client events in order.
func (o *Orchestrator) Send(sid core.SessionID, evts []json.RawMessage) error {
	e, err := o.entry(sid)
	if err != nil {
		return err
	}
	msgs := make([]any, len(evts))
	for i, ev := range evts {
		msgs[i] = ev
	}
	return e.Session.SendBatch(msgs...)
}

type inputText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type userMessage struct {
	Type    string      `json:"type"`
	Role    string      `json:"role"`
	Content []inputText `json:"content"`
}

type createItem struct {
	Type string      `json:"type"`
	Item userMessage `json:"item"`
}

type createResponse struct {
	Type string `json:"type"`
}

// SendText adds a user text message and, if asked, requests a response.
func (o *Orchestrator) SendText(sid core.SessionID, text string, forceResponse bool) error {
	e, err := o.entry(sid)
	if err != nil {
		return err
	}
	msgs := []any{createItem{
		Type: "conversation.item.create",
		Item: userMessage{Type: "message", Role: "user", Content: []inputText{{Type: "input_text", Text: text}}},
	}}
	if forceResponse {
		msgs = append(msgs, createResponse{Type: "response.create"})
	}
	return e.Session.SendBatch(msgs...)
}

type Status struct {
	Active     bool           `json:"active"`
	SessionID  core.SessionID `json:"session_id,omitempty"`
	State      string         `json:"state"`
	MicMuted   bool           `json:"mic_muted"`
	AudioMuted bool           `json:"audio_muted"`
	Volume     float64        `json:"volume"`
	OpenedAt   *time.Time     `json:"opened_at,omitempty"`
	Listeners  int            `json:"listeners"`
}

func (o *Orchestrator) Status() Status {
	sid, e, ok := o.Registry.Active()
	switch {
	case !ok:
		return Status{State: StateClosed}
	case e == nil:
		return Status{Active: true, SessionID: sid, State: StateConnecting}
	}
	opened := e.OpenedAt
	return Status{
		Active:     true,
		SessionID:  sid,
		State:      StateOpen,
		MicMuted:   e.Session.MicMuted(),
		AudioMuted: e.Session.AudioMuted(),
		Volume:     e.Session.Volume(),
		OpenedAt:   &opened,
		Listeners:  e.Session.ListenerCount(),
	}
}
