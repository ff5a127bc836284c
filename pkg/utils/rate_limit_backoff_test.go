package utils

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitError(t *testing.T) {
	rlb := NewRateLimitBackoff()

	resp := &http.Response{StatusCode: http.StatusTooManyRequests}
	assert.True(t, rlb.IsRateLimitError(nil, resp))

	assert.True(t, rlb.IsRateLimitError(errors.New("provider returned status 429"), nil))
	assert.True(t, rlb.IsRateLimitError(errors.New("Rate limit exceeded for model"), nil))
	assert.False(t, rlb.IsRateLimitError(errors.New("connection refused"), nil))
	assert.False(t, rlb.IsRateLimitError(nil, nil))
}

func TestIsRetryableNetworkError(t *testing.T) {
	assert.True(t, IsRetryableNetworkError(errors.New("context deadline exceeded")))
	assert.True(t, IsRetryableNetworkError(errors.New("read tcp: connection reset by peer")))
	assert.False(t, IsRetryableNetworkError(errors.New("invalid request body")))
	assert.False(t, IsRetryableNetworkError(nil))
}

func TestCalculateBackoffDelay_Exponential(t *testing.T) {
	rlb := NewRateLimitBackoff()

	assert.Equal(t, 2*time.Second, rlb.CalculateBackoffDelay(nil, 0))
	assert.Equal(t, 4*time.Second, rlb.CalculateBackoffDelay(nil, 1))
	assert.Equal(t, 8*time.Second, rlb.CalculateBackoffDelay(nil, 2))

	// Capped at MaxDelay for large attempt counts
	assert.Equal(t, rlb.MaxDelay, rlb.CalculateBackoffDelay(nil, 10))
}

func TestCalculateBackoffDelay_RetryAfterHeader(t *testing.T) {
	rlb := NewRateLimitBackoff()

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "5")

	delay := rlb.CalculateBackoffDelay(resp, 0)
	assert.Equal(t, 5*time.Second+rlb.BufferTime, delay)
}

func TestShouldRetry(t *testing.T) {
	rlb := NewRateLimitBackoff()
	assert.True(t, rlb.ShouldRetry(0))
	assert.True(t, rlb.ShouldRetry(2))
	assert.False(t, rlb.ShouldRetry(3))
}
