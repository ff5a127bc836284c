// Package events provides the progress event system shared by the
// orchestrator, the stream transport and UI clients.
package events

import (
	"fmt"
	"sync"
	"time"
)

// ProgressEvent is one progress update emitted during a generation run.
// Events for a single run are causally ordered: a file_chunk or
// file_complete for a path never precedes its file_start, and
// complete/error is always last.
type ProgressEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Event types carried on the wire.
const (
	EventTypeConnectionTest     = "connection_test"
	EventTypeStatus             = "status"
	EventTypePlanChunk          = "plan_chunk"
	EventTypePlanComplete       = "plan_complete"
	EventTypeFileStart          = "file_start"
	EventTypeFileChunk          = "file_chunk"
	EventTypeFileComplete       = "file_complete"
	EventTypeFileError          = "file_error"
	EventTypeBatchComplete      = "batch_complete"
	EventTypeValidationStart    = "validation_start"
	EventTypeValidationFile     = "validation_file"
	EventTypeValidationComplete = "validation_complete"
	EventTypeComplete           = "complete"
	EventTypeError              = "error"
)

// IsTerminal reports whether the event type ends a run.
func IsTerminal(eventType string) bool {
	return eventType == EventTypeComplete || eventType == EventTypeError
}

// Emitter receives progress events from the pipeline.
type Emitter func(eventType string, data any)

// Bus distributes progress events to any number of subscribers.
type Bus struct {
	subscribers map[string]chan ProgressEvent
	mutex       sync.RWMutex
	nextID      int64
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]chan ProgressEvent),
	}
}

// Subscribe adds a new subscriber to the bus.
func (b *Bus) Subscribe(name string) <-chan ProgressEvent {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	ch := make(chan ProgressEvent, 100)
	b.subscribers[name] = ch
	return ch
}

// Unsubscribe removes a subscriber from the bus.
func (b *Bus) Unsubscribe(name string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if ch, exists := b.subscribers[name]; exists {
		delete(b.subscribers, name)
		close(ch)
	}
}

// Publish broadcasts an event to all subscribers.
func (b *Bus) Publish(eventType string, data any) {
	b.mutex.Lock()
	b.nextID++
	event := ProgressEvent{
		ID:        fmt.Sprintf("%s-%d", time.Now().Format("20060102-150405"), b.nextID),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	subscribers := make([]chan ProgressEvent, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		subscribers = append(subscribers, ch)
	}
	b.mutex.Unlock()

	// Publish without holding the lock; a full channel skips the
	// subscriber rather than blocking the run.
	for _, ch := range subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Helper constructors for event payloads.

// StatusEvent creates a status event payload for a run phase change.
func StatusEvent(phase, message string) map[string]any {
	return map[string]any{
		"phase":   phase,
		"message": message,
	}
}

// FileStartEvent creates a file_start event payload.
func FileStartEvent(path, category string, index, total int) map[string]any {
	return map[string]any{
		"path":     path,
		"category": category,
		"index":    index,
		"total":    total,
	}
}

// FileChunkEvent creates a file_chunk event payload.
func FileChunkEvent(path, delta, accumulated string) map[string]any {
	return map[string]any{
		"path":        path,
		"delta":       delta,
		"accumulated": accumulated,
	}
}

// FileCompleteEvent creates a file_complete event payload.
func FileCompleteEvent(path, content string) map[string]any {
	return map[string]any{
		"path":    path,
		"content": content,
	}
}

// FileErrorEvent creates a file_error event payload for a non-fatal
// per-file generation failure.
func FileErrorEvent(path string, err error) map[string]any {
	return map[string]any{
		"path":  path,
		"error": err.Error(),
	}
}

// BatchCompleteEvent creates a batch_complete event payload.
func BatchCompleteEvent(batchIndex, completed, total int) map[string]any {
	return map[string]any{
		"batch":     batchIndex,
		"completed": completed,
		"total":     total,
	}
}

// ValidationFileEvent creates a validation_file event payload.
func ValidationFileEvent(path string, errorCount, warningCount int, score float64) map[string]any {
	return map[string]any{
		"path":     path,
		"errors":   errorCount,
		"warnings": warningCount,
		"score":    score,
	}
}

// CompleteEvent creates the terminal complete event payload.
func CompleteEvent(message string, fileCount int) map[string]any {
	return map[string]any{
		"message":    message,
		"file_count": fileCount,
	}
}

// ErrorEvent creates the terminal error event payload.
func ErrorEvent(message string, err error) map[string]any {
	data := map[string]any{"message": message}
	if err != nil {
		data["error"] = err.Error()
	}
	return data
}
