package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string) *HTTPClient {
	t.Setenv("TEST_API_KEY", "test-token")
	client, err := NewHTTPClient(DeepInfraClientType, url, "TEST_API_KEY", "test-model")
	require.NoError(t, err)
	return client
}

func TestNewHTTPClient_MissingKey(t *testing.T) {
	t.Setenv("MISSING_KEY", "")
	_, err := NewHTTPClient(OpenAIClientType, openAIURL, "MISSING_KEY", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestSendChatRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"r1","choices":[{"index":0,"message":{"role":"assistant","content":"pong"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.SendChatRequest(context.Background(), []Message{{Role: "user", Content: "ping"}})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Content())
}

func TestSendChatRequest_AuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.SendChatRequest(context.Background(), []Message{{Role: "user", Content: "ping"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestSendChatRequestStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		chunks := []string{
			`{"id":"r2","choices":[{"index":0,"delta":{"content":"hel"}}]}`,
			`{"choices":[{"index":0,"delta":{"content":"lo"}}]}`,
			`{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
			`[DONE]`,
		}
		for _, chunk := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
			flusher.Flush()
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var deltas []string
	resp, err := client.SendChatRequestStream(context.Background(), []Message{{Role: "user", Content: "hi"}}, func(content string) {
		deltas = append(deltas, content)
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content())
	assert.Equal(t, []string{"hel", "lo"}, deltas)
}

func TestParseProviderName(t *testing.T) {
	cases := map[string]ClientType{
		"openai":       OpenAIClientType,
		"OpenAI":       OpenAIClientType,
		"deepinfra":    DeepInfraClientType,
		"ollama":       OllamaLocalClientType,
		"ollama-local": OllamaLocalClientType,
	}
	for input, want := range cases {
		got, err := ParseProviderName(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseProviderName("unknown-provider")
	assert.Error(t, err)
}
