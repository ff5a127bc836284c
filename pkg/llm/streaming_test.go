package llm

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEReader_ParsesEvents(t *testing.T) {
	input := "event: message\ndata: {\"id\":\"1\"}\n\nevent: message\ndata: [DONE]\n\n"

	var events []string
	var datas []string
	reader := NewSSEReader(strings.NewReader(input), func(event, data string) error {
		events = append(events, event)
		datas = append(datas, data)
		return nil
	})

	err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"message", "message"}, events)
	assert.Equal(t, []string{`{"id":"1"}`, "[DONE]"}, datas)
}

func TestSSEReader_MultiLineData(t *testing.T) {
	input := "data: line one\ndata: line two\n\n"

	var got string
	reader := NewSSEReader(strings.NewReader(input), func(event, data string) error {
		got = data
		return nil
	})

	require.NoError(t, reader.Read())
	assert.Equal(t, "line one\nline two", got)
}

func TestSSEReader_FlushesTrailingDataOnEOF(t *testing.T) {
	// No trailing blank line before EOF
	input := "data: {\"id\":\"tail\"}\n"

	var got string
	reader := NewSSEReader(strings.NewReader(input), func(event, data string) error {
		got = data
		return nil
	})

	require.NoError(t, reader.Read())
	assert.Equal(t, `{"id":"tail"}`, got)
}

func TestParseSSEData_Done(t *testing.T) {
	chunk, err := ParseSSEData("[DONE]")
	assert.Nil(t, chunk)
	assert.Equal(t, io.EOF, err)
}

func TestParseSSEData_Malformed(t *testing.T) {
	chunk, err := ParseSSEData("{not json")
	assert.Nil(t, chunk)
	assert.Error(t, err)
}

func TestStreamingResponseBuilder_AccumulatesContent(t *testing.T) {
	var streamed strings.Builder
	builder := NewStreamingResponseBuilder(func(content string) {
		streamed.WriteString(content)
	})

	finish := "stop"
	chunks := []*StreamingChatResponse{
		{ID: "resp-1", Model: "test-model", Choices: []StreamingChoice{{Delta: StreamingDelta{Content: "hello "}}}},
		{Choices: []StreamingChoice{{Delta: StreamingDelta{Content: "world"}}}},
		{Choices: []StreamingChoice{{FinishReason: &finish}}},
	}
	for _, chunk := range chunks {
		require.NoError(t, builder.ProcessChunk(chunk))
	}

	resp := builder.GetResponse()
	assert.Equal(t, "resp-1", resp.ID)
	assert.Equal(t, "hello world", resp.Content())
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, "hello world", streamed.String())
}

func TestStreamingResponseBuilder_UsageFromFinalChunk(t *testing.T) {
	builder := NewStreamingResponseBuilder(nil)

	chunk := &StreamingChatResponse{
		Choices: []StreamingChoice{{Delta: StreamingDelta{Content: "x"}}},
		Usage: &struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		}{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
	require.NoError(t, builder.ProcessChunk(chunk))

	resp := builder.GetResponse()
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}
