package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	ollama "github.com/jmorganca/ollama/api"
)

// OllamaLocalClient handles local Ollama API requests.
type OllamaLocalClient struct {
	client *ollama.Client
	model  string
}

// NewOllamaLocalClient creates a new local Ollama client, verifying the
// server is reachable and the model is present locally.
func NewOllamaLocalClient(model string) (*OllamaLocalClient, error) {
	client, err := ollama.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("could not create ollama client: %w", err)
	}

	if model == "" {
		model = "qwen2.5-coder:7b"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	listResp, err := client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list local models: %w", err)
	}

	modelFound := false
	available := make([]string, 0, len(listResp.Models))
	for _, m := range listResp.Models {
		available = append(available, m.Name)
		if m.Name == model {
			modelFound = true
		}
	}
	if !modelFound {
		return nil, fmt.Errorf("model %s not found locally. Available models: %v", model, available)
	}

	return &OllamaLocalClient{client: client, model: model}, nil
}

func (c *OllamaLocalClient) toOllamaMessages(messages []Message) []ollama.Message {
	out := make([]ollama.Message, len(messages))
	for i, msg := range messages {
		out[i] = ollama.Message{Role: msg.Role, Content: msg.Content}
	}
	return out
}

// SendChatRequest sends a non-streaming chat request to local Ollama.
func (c *OllamaLocalClient) SendChatRequest(ctx context.Context, messages []Message) (*ChatResponse, error) {
	return c.SendChatRequestStream(ctx, messages, nil)
}

// SendChatRequestStream sends a chat request, forwarding content deltas to
// callback as they arrive.
func (c *OllamaLocalClient) SendChatRequestStream(ctx context.Context, messages []Message, callback StreamCallback) (*ChatResponse, error) {
	stream := callback != nil
	req := &ollama.ChatRequest{
		Model:    c.model,
		Messages: c.toOllamaMessages(messages),
		Stream:   &stream,
	}

	var content strings.Builder
	var promptTokens, completionTokens int
	err := c.client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		if resp.Message.Content != "" {
			content.WriteString(resp.Message.Content)
			if callback != nil {
				callback(resp.Message.Content)
			}
		}
		if resp.Done {
			promptTokens = resp.PromptEvalCount
			completionTokens = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat request failed: %w", err)
	}

	chatResp := &ChatResponse{
		Model:   c.model,
		Created: time.Now().Unix(),
		Choices: make([]Choice, 1),
	}
	chatResp.Choices[0].Message.Role = "assistant"
	chatResp.Choices[0].Message.Content = content.String()
	chatResp.Choices[0].FinishReason = "stop"
	chatResp.Usage.PromptTokens = promptTokens
	chatResp.Usage.CompletionTokens = completionTokens
	chatResp.Usage.TotalTokens = promptTokens + completionTokens
	return chatResp, nil
}

// CheckConnection verifies the local server responds.
func (c *OllamaLocalClient) CheckConnection(ctx context.Context) error {
	_, err := c.client.List(ctx)
	if err != nil {
		return fmt.Errorf("ollama server not reachable: %w", err)
	}
	return nil
}

func (c *OllamaLocalClient) SetModel(model string) error {
	if model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	c.model = model
	return nil
}

func (c *OllamaLocalClient) GetModel() string {
	return c.model
}

func (c *OllamaLocalClient) GetProvider() string {
	return string(OllamaLocalClientType)
}

// Close is a no-op; the underlying client holds no persistent connections.
func (c *OllamaLocalClient) Close() error {
	return nil
}
