package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/realtime-voice/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var ErrEmptySecret = errors.New("openai: empty client secret")

// SecretMinter exchanges the long-lived API key for ephemeral client secrets.
type SecretMinter struct {
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

func NewSecretMinter(ctx context.Context, baseURL, apiKey string) *SecretMinter {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})
	return &SecretMinter{
		client:  oauth2.NewClient(ctx, src),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  log.With().Str("module", "openai.secrets").Logger(),
	}
}

type turnDetection struct {
	Type string `json:"type"`
}

type audioInput struct {
	TurnDetection turnDetection `json:"turn_detection"`
}

type audioOutput struct {
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

type audioConfig struct {
	Input  audioInput  `json:"input"`
	Output audioOutput `json:"output"`
}

type sessionConfig struct {
	Type         string            `json:"type"`
	Model        string            `json:"model"`
	Instructions string            `json:"instructions,omitempty"`
	Audio        audioConfig       `json:"audio"`
	Tools        []domain.ToolSpec `json:"tools,omitempty"`
}

type mintRequest struct {
	Session sessionConfig `json:"session"`
}

type mintResponse struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

// Mint requests a client secret scoped to settings.
func (m *SecretMinter) Mint(ctx context.Context, settings *domain.SessionSettings) (domain.ClientSecret, error) {
	if err := settings.Validate(); err != nil {
		return domain.ClientSecret{}, fmt.Errorf("session settings: %w", err)
	}
	payload, err := json.Marshal(mintRequest{Session: sessionConfig{
		Type:         "realtime",
		Model:        settings.Model,
		Instructions: settings.Instructions,
		Audio: audioConfig{
			Input:  audioInput{TurnDetection: turnDetection{Type: settings.TurnDetection}},
			Output: audioOutput{Voice: string(settings.Voice), Speed: settings.Speed},
		},
		Tools: settings.Tools,
	}})
	if err != nil {
		return domain.ClientSecret{}, fmt.Errorf("encode session: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/client_secrets", bytes.NewReader(payload))
	if err != nil {
		return domain.ClientSecret{}, fmt.Errorf("build secret request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return domain.ClientSecret{}, fmt.Errorf("mint secret: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return domain.ClientSecret{}, fmt.Errorf("read secret: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		m.logger.Warn().Int("status", resp.StatusCode).Msg("client secret rejected")
		return domain.ClientSecret{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out mintResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.ClientSecret{}, fmt.Errorf("decode secret: %w", err)
	}
	if out.Value == "" {
		return domain.ClientSecret{}, ErrEmptySecret
	}
	secret := domain.ClientSecret{Value: out.Value}
	if out.ExpiresAt > 0 {
		secret.ExpiresAt = time.Unix(out.ExpiresAt, 0)
	}
	m.logger.Info().Str("model", settings.Model).Time("expires_at", secret.ExpiresAt).Msg("client secret minted")
	return secret, nil
}
