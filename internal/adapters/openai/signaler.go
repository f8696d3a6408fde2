// Package openai talks to the Realtime HTTP endpoints: the SDP exchange and
// ephemeral client secret minting.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// maxBody bounds the response bodies read from the API.
const maxBody = 1 << 20

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openai: status %d: %s", e.StatusCode, e.Body)
}

var _ core.Signaler = (*Signaler)(nil)

// Signaler performs one SDP offer/answer exchange authorized by a bearer token.
type Signaler struct {
	client  *http.Client
	baseURL string
	model   string
	logger  zerolog.Logger
}

// NewSignaler builds a signaler whose requests carry token as a Bearer
// credential. ctx supplies the base HTTP client via oauth2.HTTPClient.
func NewSignaler(ctx context.Context, baseURL, model, token string) *Signaler {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return &Signaler{
		client:  oauth2.NewClient(ctx, src),
		baseURL: baseURL,
		model:   model,
		logger:  log.With().Str("module", "openai.signal").Logger(),
	}
}

// Exchange posts the offer SDP and returns the answer SDP.
func (s *Signaler) Exchange(ctx context.Context, offerSDP string) (string, error) {
	endpoint := s.baseURL + "?model=" + url.QueryEscape(s.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(offerSDP))
	if err != nil {
		return "", fmt.Errorf("build sdp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sdp exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("read sdp answer: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn().Int("status", resp.StatusCode).Msg("sdp exchange rejected")
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	s.logger.Debug().Int("answer_len", len(body)).Msg("sdp answer received")
	return string(body), nil
}
