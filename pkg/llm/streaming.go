package llm

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

// StreamingChoice represents a streaming response choice
type StreamingChoice struct {
	Index        int            `json:"index"`
	Delta        StreamingDelta `json:"delta"`
	FinishReason *string        `json:"finish_reason"`
}

// StreamingDelta contains incremental updates
type StreamingDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// StreamingChatResponse represents a streaming response chunk
type StreamingChatResponse struct {
	ID      string            `json:"id"`
	Object  string            `json:"object"`
	Created int64             `json:"created"`
	Model   string            `json:"model"`
	Choices []StreamingChoice `json:"choices"`
	Usage   *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// StreamingResponseBuilder accumulates streaming chunks into a complete response
type StreamingResponseBuilder struct {
	mu             sync.Mutex
	response       ChatResponse
	content        strings.Builder
	finishReason   string
	streamCallback StreamCallback
}

// NewStreamingResponseBuilder creates a new streaming response builder
func NewStreamingResponseBuilder(callback StreamCallback) *StreamingResponseBuilder {
	return &StreamingResponseBuilder{
		streamCallback: callback,
	}
}

// ProcessChunk processes a streaming chunk and updates the builder state
func (b *StreamingResponseBuilder) ProcessChunk(chunk *StreamingChatResponse) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.response.ID == "" && chunk.ID != "" {
		b.response.ID = chunk.ID
		b.response.Object = chunk.Object
		b.response.Created = chunk.Created
		b.response.Model = chunk.Model
	}

	for _, choice := range chunk.Choices {
		for len(b.response.Choices) <= choice.Index {
			b.response.Choices = append(b.response.Choices, Choice{})
		}

		if choice.Delta.Content != "" {
			b.content.WriteString(choice.Delta.Content)
			if b.streamCallback != nil {
				b.streamCallback(choice.Delta.Content)
			}
		}

		if choice.FinishReason != nil {
			b.finishReason = *choice.FinishReason
		}
	}

	// Usage usually arrives in the final chunk
	if chunk.Usage != nil {
		b.response.Usage.PromptTokens = chunk.Usage.PromptTokens
		b.response.Usage.CompletionTokens = chunk.Usage.CompletionTokens
		b.response.Usage.TotalTokens = chunk.Usage.TotalTokens
	}

	return nil
}

// GetResponse returns the accumulated response
func (b *StreamingResponseBuilder) GetResponse() *ChatResponse {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.response.Choices) == 0 {
		b.response.Choices = append(b.response.Choices, Choice{})
	}
	choice := &b.response.Choices[0]
	choice.Message.Content = b.content.String()
	choice.FinishReason = b.finishReason

	return &b.response
}

// SSEReader reads Server-Sent Events from a reader
type SSEReader struct {
	reader  *bufio.Reader
	onEvent func(event, data string) error
}

// NewSSEReader creates a new SSE reader
func NewSSEReader(r io.Reader, onEvent func(event, data string) error) *SSEReader {
	return &SSEReader{
		reader:  bufio.NewReader(r),
		onEvent: onEvent,
	}
}

// Read processes the SSE stream
func (r *SSEReader) Read() error {
	var event string
	var dataBuilder strings.Builder

	for {
		line, err := r.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// Process any remaining data
				if dataBuilder.Len() > 0 && r.onEvent != nil {
					if err := r.onEvent(event, dataBuilder.String()); err != nil {
						return err
					}
				}
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)

		// Empty line signals end of event
		if line == "" {
			if dataBuilder.Len() > 0 && r.onEvent != nil {
				if err := r.onEvent(event, dataBuilder.String()); err != nil {
					return err
				}
			}
			event = ""
			dataBuilder.Reset()
			continue
		}

		if strings.HasPrefix(line, "event:") {
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			data := strings.TrimPrefix(line, "data:")
			if dataBuilder.Len() > 0 {
				dataBuilder.WriteString("\n")
			}
			dataBuilder.WriteString(strings.TrimSpace(data))
		}
		// Ignore other fields like id:, retry:
	}
}

// ParseSSEData parses SSE data into a streaming response chunk.
func ParseSSEData(data string) (*StreamingChatResponse, error) {
	// Providers signal end of stream with a [DONE] sentinel
	if data == "[DONE]" {
		return nil, io.EOF
	}

	var chunk StreamingChatResponse
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, fmt.Errorf("failed to parse SSE data: %w", err)
	}

	return &chunk, nil
}
