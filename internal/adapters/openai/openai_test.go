package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/realtime-voice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offer = "v=0\r\no=- 1 1 IN IP4 0.0.0.0\r\n"

func TestSignaler_Exchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "gpt-realtime", r.URL.Query().Get("model"))
		assert.Equal(t, "application/sdp", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer ek_123", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, offer, string(body))

		w.Header().Set("Content-Type", "application/sdp")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "v=0 answer")
	}))
	defer srv.Close()

	s := NewSignaler(context.Background(), srv.URL, "gpt-realtime", "ek_123")
	answer, err := s.Exchange(context.Background(), offer)
	require.NoError(t, err)
	assert.Equal(t, "v=0 answer", answer)
}

func TestSignaler_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid ephemeral key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewSignaler(context.Background(), srv.URL, "gpt-realtime", "bad")
	_, err := s.Exchange(context.Background(), offer)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "invalid ephemeral key", se.Body)
}

func TestSignaler_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s := NewSignaler(context.Background(), srv.URL, "gpt-realtime", "ek")
	_, err := s.Exchange(ctx, offer)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSecretMinter_Mint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/client_secrets", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req mintRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "realtime", req.Session.Type)
		assert.Equal(t, "gpt-realtime", req.Session.Model)
		assert.Equal(t, "semantic_vad", req.Session.Audio.Input.TurnDetection.Type)
		assert.Equal(t, "marin", req.Session.Audio.Output.Voice)
		if assert.Len(t, req.Session.Tools, 1) {
			assert.Equal(t, "current_time", req.Session.Tools[0].Name)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"value": "ek_abc", "expires_at": 1_900_000_000})
	}))
	defer srv.Close()

	settings, err := domain.NewSessionSettings("gpt-realtime", "marin", 1, "be brief")
	require.NoError(t, err)
	settings.Tools = []domain.ToolSpec{{Type: "function", Name: "current_time"}}

	m := NewSecretMinter(context.Background(), srv.URL+"/", "sk-test")
	secret, err := m.Mint(context.Background(), settings)
	require.NoError(t, err)
	assert.Equal(t, "ek_abc", secret.Value)
	assert.Equal(t, time.Unix(1_900_000_000, 0), secret.ExpiresAt)
}

func TestSecretMinter_Errors(t *testing.T) {
	var status int
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	settings, err := domain.NewSessionSettings("gpt-realtime", "marin", 1, "")
	require.NoError(t, err)
	m := NewSecretMinter(context.Background(), srv.URL, "sk-test")

	status, body = http.StatusForbidden, "nope"
	_, err = m.Mint(context.Background(), settings)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)

	status, body = http.StatusOK, `{"value":""}`
	_, err = m.Mint(context.Background(), settings)
	assert.ErrorIs(t, err, ErrEmptySecret)

	status, body = http.StatusOK, `not json`
	_, err = m.Mint(context.Background(), settings)
	assert.ErrorContains(t, err, "decode secret")

	settings.Speed = 9
	_, err = m.Mint(context.Background(), settings)
	assert.ErrorIs(t, err, domain.ErrSpeedOutOfRange)
}
