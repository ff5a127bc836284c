// Package stream carries generation progress over server-sent events:
// a writer used by the HTTP server and a reconnecting consumer used by
// clients.
package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/alantheprice/appforge/pkg/events"
)

// Writer encodes progress events onto an HTTP response as server-sent
// events, flushing after every event so updates reach the client
// immediately.
type Writer struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares a response for SSE output. It fails when the
// underlying connection cannot stream.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	return &Writer{w: w, flusher: flusher}, nil
}

// Send writes one `event: <type>\ndata: <json>\n\n` message and
// flushes it. Safe for concurrent use.
func (s *Writer) Send(eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Emitter adapts the writer to the pipeline's event emitter shape,
// dropping write errors: a disconnected client is detected by the
// request context, not per event.
func (s *Writer) Emitter() events.Emitter {
	return func(eventType string, data any) {
		_ = s.Send(eventType, data)
	}
}
