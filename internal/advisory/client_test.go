package advisory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/sor/internal/router"
)

func TestConsult_ReturnsCompletionContent(t *testing.T) {
	var received chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"strategy\":\"single_venue\"}"}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		Endpoint: server.URL,
		APIKey:   "test-key",
		Model:    "gpt-4o-mini",
	})

	content, err := client.Consult(context.Background(), router.AdvisoryRequest{
		Prompt:      "route BTCUSDT",
		RequesterID: "user-1",
		Temperature: 0.3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"strategy":"single_venue"}`, content)

	assert.Equal(t, "gpt-4o-mini", received.Model)
	assert.Equal(t, 0.3, received.Temperature)
	assert.Equal(t, "user-1", received.User)
	require.Len(t, received.Messages, 1)
	assert.Equal(t, "user", received.Messages[0].Role)
	assert.Equal(t, "route BTCUSDT", received.Messages[0].Content)
}

func TestConsult_NoAuthHeaderWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL})
	_, err := client.Consult(context.Background(), router.AdvisoryRequest{Prompt: "p"})
	require.NoError(t, err)
}

func TestConsult_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "http error status",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"message":"rate limited","type":"rate_limit"}}`,
			wantErr: "status 429",
		},
		{
			name:    "provider error object",
			status:  http.StatusOK,
			body:    `{"error":{"message":"model overloaded","type":"server_error"}}`,
			wantErr: "model overloaded",
		},
		{
			name:    "empty choices",
			status:  http.StatusOK,
			body:    `{"choices":[]}`,
			wantErr: "no choices",
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `not json`,
			wantErr: "failed to parse response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(Config{Endpoint: server.URL})
			_, err := client.Consult(context.Background(), router.AdvisoryRequest{Prompt: "p"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConsult_ContextCancelled(t *testing.T) {
	client := NewClient(Config{Endpoint: "http://127.0.0.1:1/v1/chat/completions"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Consult(ctx, router.AdvisoryRequest{Prompt: "p"})
	require.Error(t, err)
}
