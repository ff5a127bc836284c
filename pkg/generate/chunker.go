package generate

// Chunker buffers streamed text and decides when enough has accumulated to
// emit a client-visible update. It emits a chunk once the buffer holds at
// least chunkLines newline-terminated lines; Flush drains whatever remains.
// The concatenation of every emitted chunk plus the flush equals the full
// streamed text exactly.
type Chunker struct {
	chunkLines int
	pending    string
}

// NewChunker creates a chunker that emits chunkLines complete lines at a
// time. Values below 1 fall back to 2.
func NewChunker(chunkLines int) *Chunker {
	if chunkLines < 1 {
		chunkLines = 2
	}
	return &Chunker{chunkLines: chunkLines}
}

// AddContent buffers text and returns a chunk of exactly chunkLines
// complete lines when available. Any trailing partial line stays buffered.
func (c *Chunker) AddContent(text string) (string, bool) {
	c.pending += text

	count := 0
	for i := 0; i < len(c.pending); i++ {
		if c.pending[i] == '\n' {
			count++
			if count == c.chunkLines {
				chunk := c.pending[:i+1]
				c.pending = c.pending[i+1:]
				return chunk, true
			}
		}
	}
	return "", false
}

// Flush emits the entire remaining buffer, even if it holds fewer than
// chunkLines lines or no newline at all.
func (c *Chunker) Flush() (string, bool) {
	chunk := c.pending
	c.pending = ""
	return chunk, chunk != ""
}
