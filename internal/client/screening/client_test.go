package screening

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/httpclient"
)

func newBreakerClient(name string) *httpclient.CircuitBreakerClient {
	base := httpclient.New(httpclient.Config{
		Timeout:         time.Second,
		MaxRetries:      0,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    time.Millisecond,
		MaxConnsPerHost: 4,
	})
	cb := httpclient.DefaultCircuitBreakerConfig(name)
	cb.MinRequests = 2
	return httpclient.NewCircuitBreakerClient(base, cb, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Screen(t *testing.T) {
	var got screenRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/screen", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"verdict":"FLAG","labels":["spam","self-promotion"]}`))
	}))
	defer server.Close()

	c := New(newBreakerClient("screening-ok"), server.URL+"/")
	verdict, labels, err := c.Screen(context.Background(), "Great tutor\nvisit my site")

	require.NoError(t, err)
	assert.Equal(t, "flag", verdict)
	assert.Equal(t, []string{"spam", "self-promotion"}, labels)
	assert.Equal(t, "Great tutor\nvisit my site", got.Text)
}

func TestClient_Screen_ServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := New(newBreakerClient("screening-down"), server.URL)
	_, _, err := c.Screen(context.Background(), "text")

	require.Error(t, err)
	assert.True(t, httpclient.IsUnavailable(err))
}

func TestClient_Screen_BreakerOpens(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(newBreakerClient("screening-trip"), server.URL)
	for i := 0; i < 2; i++ {
		_, _, err := c.Screen(context.Background(), "text")
		require.Error(t, err)
	}

	_, _, err := c.Screen(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, httpclient.ErrCircuitOpen)
	assert.Equal(t, 2, calls)
}

func TestClient_Screen_EmptyVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"labels":[]}`))
	}))
	defer server.Close()

	_, _, err := New(newBreakerClient("screening-empty"), server.URL).Screen(context.Background(), "x")
	assert.Error(t, err)
}
