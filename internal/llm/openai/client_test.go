package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/joseph-ayodele/intake-tracker/internal/llm"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "gpt-4o-mini", Temperature: 0.1, Timeout: 2 * time.Second}, zaptest.NewLogger(t))
}

func TestClient_Complete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, "json_object", req.ResponseFormat["type"])
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "extract this", req.Messages[1].Content)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  {\"email\": null}  "}}]}`))
	})

	out, err := c.Complete(context.Background(), "sys", "extract this")
	require.NoError(t, err)
	assert.Equal(t, `{"email": null}`, out)
}

func TestClient_CompleteClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		mark   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests"}}`, llm.ErrRateLimited},
		{"gateway timeout", http.StatusGatewayTimeout, `upstream timeout`, llm.ErrTimeout},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"oops"}}`, llm.ErrProvider},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"bad"}}`, llm.ErrProvider},
		{"garbage envelope", http.StatusOK, `<html>`, llm.ErrMalformed},
		{"no choices", http.StatusOK, `{"choices":[]}`, llm.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Complete(context.Background(), "sys", "user")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.mark), "got %v", err)
		})
	}
}

func TestClient_RateLimitedMessageIsSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	})
	_, err := c.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai status 429: Rate limit reached")
	assert.Equal(t, llm.KindRateLimit, llm.KindOf(err))
}

func TestClient_HTTPTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)

	_, err := c.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrTimeout), "got %v", err)
}

func TestClient_LimiterHonoursContext(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	})
	c.cfg.RequestsPerMinute = 1
	c = NewClient(c.cfg, nil)

	_, err := c.Complete(context.Background(), "s", "u")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, "s", "u")
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrTimeout))
	assert.Equal(t, 1, calls)
}

func TestNewClient_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	c := NewClient(Config{}, nil)
	assert.Equal(t, "from-env", c.cfg.APIKey)
	assert.Equal(t, "https://api.openai.com/v1", c.cfg.BaseURL)
	assert.Equal(t, "gpt-4o-mini", c.Model())
	assert.Equal(t, 30*time.Second, c.cfg.Timeout)
	assert.Nil(t, c.limiter)
}
