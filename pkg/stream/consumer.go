package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/alantheprice/appforge/pkg/events"
	"github.com/alantheprice/appforge/pkg/utils"
)

// State is the consumer-observed lifecycle of one generation run.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateStreaming    State = "streaming"
	StateReconnecting State = "reconnecting"
	StateComplete     State = "complete"
	StateErrored      State = "errored"
)

// maxTransientFailures is the reconnect ceiling: the run becomes
// terminally errored on the third consecutive transient failure.
const maxTransientFailures = 3

// ErrRunFailed is returned when the server ends the stream with a
// terminal error event.
var ErrRunFailed = errors.New("generation run failed")

// GenerateRequest is the run trigger sent to the server.
type GenerateRequest struct {
	ProjectID     string `json:"project_id"`
	Specification string `json:"specification"`
	Category      string `json:"category,omitempty"`
	Model         string `json:"model,omitempty"`
}

// EventHandler receives every decoded event in arrival order.
type EventHandler func(event Event)

// Consumer drives a generation run over SSE and retries the whole run
// on transient network failure with exponential backoff.
type Consumer struct {
	url     string
	token   string
	client  *http.Client
	handler EventHandler
	logger  *utils.Logger

	// sleep is replaceable so tests do not wait out real backoff.
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	state State
}

// NewConsumer creates a consumer for the given generation endpoint.
func NewConsumer(url, token string, handler EventHandler) *Consumer {
	return &Consumer{
		url:     url,
		token:   token,
		client:  &http.Client{},
		handler: handler,
		logger:  utils.GetLogger(false),
		sleep:   sleepCtx,
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Consumer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Consumer) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// StartGeneration runs one generation to completion, blocking until the
// stream ends in a terminal event, a fatal error, or the reconnect
// ceiling. Calling it while a run is already in flight is a no-op.
func (c *Consumer) StartGeneration(ctx context.Context, req GenerateRequest) error {
	c.mu.Lock()
	switch c.state {
	case StateConnecting, StateStreaming, StateReconnecting:
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	failures := 0
	for {
		err := c.connectAndConsume(ctx, req, &failures)
		if err == nil {
			c.setState(StateComplete)
			return nil
		}
		if !transient(err) {
			c.setState(StateErrored)
			return err
		}

		failures++
		c.logger.Logf("stream interrupted (failure %d/%d): %v", failures, maxTransientFailures, err)
		if failures >= maxTransientFailures {
			c.setState(StateErrored)
			return fmt.Errorf("stream failed after %d attempts: %w", failures, err)
		}

		c.setState(StateReconnecting)
		delay := time.Duration(1<<uint(failures)) * time.Second
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			c.setState(StateErrored)
			return sleepErr
		}
		c.setState(StateConnecting)
	}
}

// connectAndConsume performs one connection attempt and drains the
// event stream. A nil return means the run completed; transient errors
// are retried by the caller.
func (c *Consumer) connectAndConsume(ctx context.Context, req GenerateRequest, failures *int) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &transientError{err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Auth failures are fatal immediately, no retry.
		return fmt.Errorf("authentication rejected (status %d)", resp.StatusCode)
	case resp.StatusCode >= 500:
		return &transientError{fmt.Errorf("server error (status %d)", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	c.setState(StateStreaming)
	return c.consume(ctx, resp.Body, failures)
}

// consume reads the body in fragments, feeding the message buffer and
// dispatching complete events until a terminal event arrives. An EOF
// before a terminal event is a transient failure.
func (c *Consumer) consume(ctx context.Context, body io.Reader, failures *int) error {
	mb := &messageBuffer{}
	buf := make([]byte, 4096)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, event := range mb.add(buf[:n]) {
				// Receiving an event means the connection works; the
				// failure count is for consecutive failures only.
				*failures = 0
				if c.handler != nil {
					c.handler(event)
				}
				switch event.Type {
				case events.EventTypeComplete:
					return nil
				case events.EventTypeError:
					return fmt.Errorf("%w: %s", ErrRunFailed, string(event.Data))
				}
			}
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &transientError{fmt.Errorf("stream ended before terminal event: %w", readErr)}
		}
	}
}

// transientError marks failures worth a reconnect attempt.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	return utils.IsRetryableNetworkError(err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
