package api

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/multichat-ai/multichat/pkg/types"
)

// TelemetryClient posts usage records to the telemetry collaborator.
// Delivery is fire-and-forget: callers run Record off the session's hot path
// and swallow failures after logging.
type TelemetryClient struct {
	http *resty.Client
	url  string
	auth Auth
}

// NewTelemetryClient creates a telemetry client.
func NewTelemetryClient(url string, auth Auth) *TelemetryClient {
	return &TelemetryClient{
		http: newHTTP(10 * time.Second),
		url:  url,
		auth: auth,
	}
}

// Record posts one usage record. No response body is relied upon.
func (c *TelemetryClient) Record(ctx context.Context, record types.UsageRecord) error {
	resp, err := c.auth.apply(c.http.R()).
		SetContext(ctx).
		SetBody(record).
		Post(c.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return statusError("record usage", resp.StatusCode(), resp.Body())
	}

	return nil
}
