package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/multichat-ai/multichat/internal/logging"
	"github.com/multichat-ai/multichat/pkg/types"
)

// Auth is the auth context for one stream. A session-scoped bearer token
// takes precedence over the deployment's long-lived API key.
type Auth struct {
	BearerToken string
	APIKey      string
}

// Config holds streaming client configuration.
type Config struct {
	// InferenceURL is the endpoint that accepts the inference request body.
	InferenceURL string
	// ConnectTimeout bounds the window before the first response byte.
	ConnectTimeout time.Duration
	// StallTimeout bounds the gap between frames once streaming has started.
	StallTimeout time.Duration
}

// Client opens token-delta streams against the inference endpoint. It is
// safe for concurrent use; each session owns at most one active Stream.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a streaming client.
func NewClient(cfg Config) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.StallTimeout <= 0 {
		cfg.StallTimeout = 30 * time.Second
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
				ResponseHeaderTimeout: cfg.ConnectTimeout,
			},
		},
	}
}

// Start opens a streaming connection for the given request. A failure before
// the first byte is returned immediately as a classified error; on success
// the caller owns the returned Stream and must drain or cancel it.
func (c *Client) Start(ctx context.Context, req types.InferenceRequest, auth Auth) (*Stream, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Message: fmt.Sprintf("encode request: %v", err)}
	}

	ctx, cancel := context.WithCancel(ctx)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.InferenceURL, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, &Error{Kind: KindValidation, Message: err.Error()}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if auth.BearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+auth.BearerToken)
	} else if auth.APIKey != "" {
		httpReq.Header.Set("api-key", auth.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		cancel()
		return nil, &Error{Kind: KindNetwork, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()

		kind := ClassifyStatus(resp.StatusCode)
		logging.Debug().
			Int("status", resp.StatusCode).
			Str("kind", string(kind)).
			Msg("inference request rejected")

		return nil, &Error{Kind: kind, Status: resp.StatusCode, Message: string(detail)}
	}

	return newStream(resp.Body, cancel, c.cfg.StallTimeout), nil
}
