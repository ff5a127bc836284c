package stream

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Event is one decoded server-sent event.
type Event struct {
	Type string
	Data json.RawMessage
}

// messageBuffer accumulates raw bytes from fragmented reads and yields
// only complete `\n\n`-terminated SSE messages. Partial messages are
// never parsed.
type messageBuffer struct {
	buf bytes.Buffer
}

func (m *messageBuffer) add(data []byte) []Event {
	m.buf.Write(data)

	var parsed []Event
	for {
		raw := m.buf.Bytes()
		end := bytes.Index(raw, []byte("\n\n"))
		if end < 0 {
			return parsed
		}
		block := string(raw[:end])
		m.buf.Next(end + 2)

		if event, ok := parseBlock(block); ok {
			parsed = append(parsed, event)
		}
	}
}

// parseBlock decodes one SSE message block into an event. Blocks
// without an event field (comments, keep-alives) are skipped.
func parseBlock(block string) (Event, bool) {
	var event Event
	var data []string

	for _, line := range strings.Split(block, "\n") {
		switch {
		case strings.HasPrefix(line, "event:"):
			event.Type = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if event.Type == "" {
		return Event{}, false
	}
	event.Data = json.RawMessage(strings.Join(data, "\n"))
	return event, true
}
