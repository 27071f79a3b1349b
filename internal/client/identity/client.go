// Package identity looks up account data in the platform identity service.
package identity

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ServiceName labels breaker metrics and errors.
const ServiceName = "identity"

// JSONClient is the subset of httpclient.CircuitBreakerClient used here.
type JSONClient interface {
	GetJSON(ctx context.Context, url string, out any) error
}

type userEnvelope struct {
	Data struct {
		ID        string    `json:"id"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"data"`
}

// Client reads user accounts through GET {baseURL}/api/v1/users/{id}.
type Client struct {
	http    JSONClient
	baseURL string
}

// New creates an identity client for the service at baseURL.
func New(http JSONClient, baseURL string) *Client {
	return &Client{http: http, baseURL: strings.TrimRight(baseURL, "/")}
}

// AccountCreatedAt returns when the user's account was created.
func (c *Client) AccountCreatedAt(ctx context.Context, userID string) (time.Time, error) {
	var env userEnvelope
	if err := c.http.GetJSON(ctx, c.baseURL+"/api/v1/users/"+url.PathEscape(userID), &env); err != nil {
		return time.Time{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	if env.Data.CreatedAt.IsZero() {
		return time.Time{}, fmt.Errorf("get user %s: missing created_at", userID)
	}
	return env.Data.CreatedAt, nil
}
