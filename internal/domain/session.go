// Package domain contains entity without transport, just meta-data
package domain

import (
	"errors"
	"slices"
	"time"
)

const (
	MaxInstructionsLen = 16384
	MinSpeed           = 0.25
	MaxSpeed           = 1.5
)

var (
	ErrModelEmpty      = errors.New("model empty")
	ErrUnknownVoice    = errors.New("unknown voice")
	ErrSpeedOutOfRange = errors.New("speed out of range")
	ErrInstructionsLen = errors.New("instructions too long")
	ErrToolNameEmpty   = errors.New("tool name empty")
)

type Voice string

var Voices = []Voice{
	"alloy", "ash", "ballad", "cedar", "coral", "echo",
	"fable", "marin", "nova", "onyx", "sage", "shimmer",
}

func (v Voice) Valid() bool { return slices.Contains(Voices, v) }

// ToolSpec advertises one callable function to the model.
type ToolSpec struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// SessionSettings is what the model is told when a session is minted.
type SessionSettings struct {
	Model         string
	Voice         Voice
	Speed         float64
	Instructions  string
	TurnDetection string
	Tools         []ToolSpec
}

// NewSessionSettings keeps validation in one place so adapters never build
// an invalid session request.
func NewSessionSettings(model string, voice Voice, speed float64, instructions string) (*SessionSettings, error) {
	s := &SessionSettings{
		Model:         model,
		Voice:         voice,
		Speed:         speed,
		Instructions:  instructions,
		TurnDetection: "semantic_vad",
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SessionSettings) Validate() error {
	if s.Model == "" {
		return ErrModelEmpty
	}
	if !s.Voice.Valid() {
		return ErrUnknownVoice
	}
	if s.Speed < MinSpeed || s.Speed > MaxSpeed {
		return ErrSpeedOutOfRange
	}
	if len(s.Instructions) > MaxInstructionsLen {
		return ErrInstructionsLen
	}
	for _, t := range s.Tools {
		if t.Name == "" {
			return ErrToolNameEmpty
		}
	}
	return nil
}

// ClientSecret is a short-lived credential for one signaling exchange.
type ClientSecret struct {
	Value     string
	ExpiresAt time.Time
}

func (c ClientSecret) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
