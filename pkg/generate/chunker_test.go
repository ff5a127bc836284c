package generate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunker_TwoLineChunks(t *testing.T) {
	c := NewChunker(2)

	chunk, emit := c.AddContent("ab\ncd\nef")
	assert.True(t, emit)
	assert.Equal(t, "ab\ncd\n", chunk)

	// Trailing partial line stays buffered until flush
	chunk, emit = c.Flush()
	assert.True(t, emit)
	assert.Equal(t, "ef", chunk)
}

func TestChunker_NoEmitBelowThreshold(t *testing.T) {
	c := NewChunker(2)

	_, emit := c.AddContent("one line\n")
	assert.False(t, emit)

	_, emit = c.AddContent("still the same ")
	assert.False(t, emit)

	chunk, emit := c.AddContent("line\n")
	assert.True(t, emit)
	assert.Equal(t, "one line\nstill the same line\n", chunk)
}

func TestChunker_FlushEmptyBuffer(t *testing.T) {
	c := NewChunker(2)
	chunk, emit := c.Flush()
	assert.False(t, emit)
	assert.Empty(t, chunk)
}

func TestChunker_ConcatenationEqualsInput(t *testing.T) {
	inputs := []string{
		"line1\nline2\nline3\nline4\nline5",
		"no newlines at all",
		"\n\n\n\n",
		"a",
		"",
		"mixed\ncontent with\n\nempty lines\nand tail",
	}

	for _, input := range inputs {
		for _, k := range []int{1, 2, 3} {
			c := NewChunker(k)
			var out strings.Builder

			// Feed byte by byte to exercise partial-line buffering
			for i := 0; i < len(input); i++ {
				for {
					chunk, emit := c.AddContent(input[i : i+1])
					if !emit {
						break
					}
					out.WriteString(chunk)
					// Further complete groups may remain buffered
					chunk, emit = c.AddContent("")
					if !emit {
						break
					}
					out.WriteString(chunk)
				}
			}
			if chunk, emit := c.Flush(); emit {
				out.WriteString(chunk)
			}

			assert.Equal(t, input, out.String(), "k=%d input=%q", k, input)
		}
	}
}

func TestChunker_DefaultsBadChunkSize(t *testing.T) {
	c := NewChunker(0)
	_, emit := c.AddContent("a\n")
	assert.False(t, emit)
	chunk, emit := c.AddContent("b\n")
	assert.True(t, emit)
	assert.Equal(t, "a\nb\n", chunk)
}
