// Package screening calls the external content-screening service.
package screening

import (
	"context"
	"fmt"
	"strings"
)

// ServiceName labels breaker metrics and errors.
const ServiceName = "content-screening"

// JSONClient is the subset of httpclient.CircuitBreakerClient used here.
type JSONClient interface {
	PostJSON(ctx context.Context, url string, in, out any) error
}

type screenRequest struct {
	Text string `json:"text"`
}

type screenResponse struct {
	Verdict string   `json:"verdict"`
	Labels  []string `json:"labels"`
}

// Client classifies review text through POST {baseURL}/v1/screen.
type Client struct {
	http    JSONClient
	baseURL string
}

// New creates a screening client for the service at baseURL.
func New(http JSONClient, baseURL string) *Client {
	return &Client{http: http, baseURL: strings.TrimRight(baseURL, "/")}
}

// Screen returns the service verdict and its labels. Any error, including
// an open breaker, means the service could not answer.
func (c *Client) Screen(ctx context.Context, text string) (string, []string, error) {
	var resp screenResponse
	if err := c.http.PostJSON(ctx, c.baseURL+"/v1/screen", screenRequest{Text: text}, &resp); err != nil {
		return "", nil, fmt.Errorf("screen text: %w", err)
	}
	if resp.Verdict == "" {
		return "", nil, fmt.Errorf("screen text: empty verdict")
	}
	return strings.ToLower(resp.Verdict), resp.Labels, nil
}
