package api

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/multichat-ai/multichat/pkg/types"
)

// DeploymentClient lists model deployments from the listing collaborator.
type DeploymentClient struct {
	http *resty.Client
	url  string
	auth Auth
}

// NewDeploymentClient creates a deployment listing client.
func NewDeploymentClient(url string, auth Auth) *DeploymentClient {
	return &DeploymentClient{
		http: newHTTP(15 * time.Second),
		url:  url,
		auth: auth,
	}
}

// listRequest is the wire body for the deployment listing endpoint.
type listRequest struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Search string `json:"search,omitempty"`
}

// List fetches one page of deployments.
func (c *DeploymentClient) List(ctx context.Context, page, limit int, search string) (*types.DeploymentPage, error) {
	var result types.DeploymentPage

	resp, err := c.auth.apply(c.http.R()).
		SetContext(ctx).
		SetBody(listRequest{Page: page, Limit: limit, Search: search}).
		SetResult(&result).
		Post(c.url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusError("list deployments", resp.StatusCode(), resp.Body())
	}

	return &result, nil
}
