package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/alantheprice/appforge/pkg/utils"
)

const (
	deepInfraURL = "https://api.deepinfra.com/v1/openai/chat/completions"
	openAIURL    = "https://api.openai.com/v1/chat/completions"

	defaultDeepInfraModel = "deepseek-ai/DeepSeek-V3.1"
	defaultOpenAIModel    = "gpt-4o-mini"
)

// HTTPClient talks to any OpenAI-compatible chat completions endpoint.
type HTTPClient struct {
	httpClient *http.Client
	provider   ClientType
	baseURL    string
	apiToken   string
	model      string
	backoff    *utils.RateLimitBackoff
	debug      bool
}

// NewHTTPClient creates a client for an OpenAI-compatible provider. The API
// token is read from tokenEnv at construction time so a missing key fails
// fast instead of mid-run.
func NewHTTPClient(provider ClientType, baseURL, tokenEnv, model string) (*HTTPClient, error) {
	token := os.Getenv(tokenEnv)
	if token == "" {
		return nil, fmt.Errorf("%s environment variable not set: %w", tokenEnv, ErrAuth)
	}

	if model == "" {
		switch provider {
		case OpenAIClientType:
			model = defaultOpenAIModel
		default:
			model = defaultDeepInfraModel
		}
	}

	return &HTTPClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		provider:   provider,
		baseURL:    baseURL,
		apiToken:   token,
		model:      model,
		backoff:    utils.NewRateLimitBackoff(),
	}, nil
}

// SetBaseURL overrides the endpoint, used by tests and self-hosted gateways.
func (c *HTTPClient) SetBaseURL(url string) {
	c.baseURL = url
}

func (c *HTTPClient) SetDebug(debug bool) {
	c.debug = debug
}

func (c *HTTPClient) SetModel(model string) error {
	if model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	c.model = model
	return nil
}

func (c *HTTPClient) GetModel() string {
	return c.model
}

func (c *HTTPClient) GetProvider() string {
	return string(c.provider)
}

// CheckConnection verifies the API token is present.
func (c *HTTPClient) CheckConnection(ctx context.Context) error {
	if c.apiToken == "" {
		return ErrAuth
	}
	return nil
}

// Close releases idle connections held by the underlying transport.
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SendChatRequest sends a non-streaming chat request, retrying on rate
// limits with provider-aware backoff.
func (c *HTTPClient) SendChatRequest(ctx context.Context, messages []Message) (*ChatResponse, error) {
	req := ChatRequest{
		Model:    c.model,
		Messages: messages,
	}

	for attempt := 0; ; attempt++ {
		resp, httpResp, err := c.doRequest(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !c.backoff.IsRateLimitError(err, httpResp) || !c.backoff.ShouldRetry(attempt) {
			return nil, err
		}
		delay := c.backoff.CalculateBackoffDelay(httpResp, attempt)
		c.backoff.Wait(delay, string(c.provider))
	}
}

func (c *HTTPClient) doRequest(ctx context.Context, req ChatRequest) (*ChatResponse, *http.Response, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return nil, resp, fmt.Errorf("API request rejected with status %d: %s: %w", resp.StatusCode, string(body), ErrAuth)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, resp, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, resp, fmt.Errorf("failed to decode response: %w", err)
	}
	return &chatResp, resp, nil
}

// SendChatRequestStream sends a streaming chat request and processes
// content deltas via callback. The returned response carries the full
// accumulated content.
func (c *HTTPClient) SendChatRequestStream(ctx context.Context, messages []Message, callback StreamCallback) (*ChatResponse, error) {
	req := ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API request rejected with status %d: %s: %w", resp.StatusCode, string(body), ErrAuth)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	builder := NewStreamingResponseBuilder(callback)

	sseReader := NewSSEReader(resp.Body, func(event, data string) error {
		chunk, err := ParseSSEData(data)
		if err != nil {
			if err == io.EOF {
				return err
			}
			// Skip unparseable keep-alive or comment frames.
			return nil
		}
		return builder.ProcessChunk(chunk)
	})

	if err := sseReader.Read(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read SSE stream: %w", err)
	}

	return builder.GetResponse(), nil
}
