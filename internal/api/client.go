// Package api provides HTTP clients for the orchestrator's collaborator
// endpoints: deployment listing, remote notes, and usage telemetry.
package api

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Auth carries credentials for collaborator calls. A session-scoped bearer
// token takes precedence over the long-lived deployment API key.
type Auth struct {
	BearerToken string
	APIKey      string
}

// apply sets auth headers on a request.
func (a Auth) apply(req *resty.Request) *resty.Request {
	if a.BearerToken != "" {
		req.SetHeader("Authorization", "Bearer "+a.BearerToken)
	}
	if a.APIKey != "" {
		req.SetHeader("api-key", a.APIKey)
	}
	return req
}

// newHTTP builds a resty client shared by the collaborator clients.
func newHTTP(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

// statusError reports a non-2xx collaborator response.
func statusError(op string, code int, body []byte) error {
	return fmt.Errorf("%s: unexpected status %d: %s", op, code, string(body))
}
