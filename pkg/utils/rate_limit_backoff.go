package utils

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitBackoff handles rate limit detection and backoff calculations
// for outbound model-provider requests.
type RateLimitBackoff struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	BufferTime time.Duration
}

// NewRateLimitBackoff creates a new rate limit backoff handler with sensible defaults
func NewRateLimitBackoff() *RateLimitBackoff {
	return &RateLimitBackoff{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   60 * time.Second,
		BufferTime: 2 * time.Second,
	}
}

func containsRateLimitPhrases(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "rate limit") ||
		strings.Contains(s, "requests per minute") ||
		strings.Contains(s, "rate exceeded") ||
		strings.Contains(s, "quota exceeded") ||
		strings.Contains(s, "too many requests") ||
		strings.Contains(s, "insufficient_quota")
}

// IsRateLimitError checks if an error or HTTP response indicates a rate limit
func (rlb *RateLimitBackoff) IsRateLimitError(err error, resp *http.Response) bool {
	// HTTP 429 is generally a reliable indicator
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return true
	}

	if err != nil {
		errStr := strings.ToLower(err.Error())
		// Providers often format as "status 429" without the standard phrase.
		if strings.Contains(errStr, "429") {
			return true
		}
		return containsRateLimitPhrases(errStr)
	}

	return false
}

// IsRetryableNetworkError reports whether an error looks like a transient
// network or provider timeout failure rather than a permanent one.
func IsRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "eof")
}

// CalculateBackoffDelay calculates how long to wait before retrying
func (rlb *RateLimitBackoff) CalculateBackoffDelay(resp *http.Response, attempt int) time.Duration {
	// Prefer rate limit headers when the provider sends them
	if resp != nil {
		if delay := rlb.parseRateLimitHeaders(resp); delay > 0 {
			return delay
		}
	}

	return rlb.exponentialBackoff(attempt)
}

// parseRateLimitHeaders attempts to parse rate limit headers from various providers
func (rlb *RateLimitBackoff) parseRateLimitHeaders(resp *http.Response) time.Duration {
	// X-RateLimit-Reset in milliseconds since epoch
	if resetHeader := resp.Header.Get("X-RateLimit-Reset"); resetHeader != "" {
		if resetTime, err := strconv.ParseInt(resetHeader, 10, 64); err == nil {
			resetAt := time.Unix(resetTime/1000, (resetTime%1000)*1000000)
			waitTime := time.Until(resetAt)
			if waitTime > 0 {
				return rlb.capDelay(waitTime + rlb.BufferTime)
			}
		}
	}

	// Retry-After header (in seconds)
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			waitTime := time.Duration(seconds) * time.Second
			return rlb.capDelay(waitTime + rlb.BufferTime)
		}
	}

	return 0 // No parseable headers found
}

// exponentialBackoff calculates exponential backoff delay
func (rlb *RateLimitBackoff) exponentialBackoff(attempt int) time.Duration {
	delay := rlb.BaseDelay * time.Duration(math.Pow(2, float64(attempt)))
	return rlb.capDelay(delay)
}

// capDelay ensures delay doesn't exceed maximum
func (rlb *RateLimitBackoff) capDelay(delay time.Duration) time.Duration {
	if delay > rlb.MaxDelay {
		return rlb.MaxDelay
	}
	if delay < 0 {
		return rlb.BaseDelay
	}
	return delay
}

// ShouldRetry determines if we should retry based on attempt count
func (rlb *RateLimitBackoff) ShouldRetry(attempt int) bool {
	return attempt < rlb.MaxRetries
}

// Wait sleeps for the calculated delay, logging the wait for visibility.
func (rlb *RateLimitBackoff) Wait(duration time.Duration, provider string) {
	if duration <= 0 {
		return
	}
	GetLogger(false).Logf("Rate limited by %s, waiting %s before retry", provider, duration.Round(time.Second))
	time.Sleep(duration)
}

// FormatDuration renders a duration the way run summaries display it.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(100 * time.Millisecond).String()
}
