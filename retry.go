package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"
)

type retryPolicy struct {
	maxRetries int // retries after the first attempt; 0 means try once
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func defaultRetryPolicy(maxRetries int) retryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retryPolicy{
		maxRetries: maxRetries,
		baseDelay:  time.Second,
		maxDelay:   30 * time.Second,
	}
}

// retryCompletion runs fn with exponential backoff, retrying only errors
// the classifier marks transient (rate limit, unreachable service).
// Non-retryable errors propagate immediately so the engine can react to
// them instead of burning attempts.
func retryCompletion(ctx context.Context, policy retryPolicy, fn func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= policy.maxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.delayFor(attempt)
			log.Printf("llm retry attempt=%d/%d delay=%s err=%v", attempt, policy.maxRetries, delay.Round(time.Millisecond), lastErr)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("retry canceled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		text, err := fn()
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("giving up after %d retries: %w", policy.maxRetries, lastErr)
}

// delayFor doubles the base delay per attempt, capped at maxDelay, with
// ±25% jitter so parallel runs don't hammer the service in lockstep.
func (p retryPolicy) delayFor(attempt int) time.Duration {
	delay := p.baseDelay << (attempt - 1)
	if delay > p.maxDelay {
		delay = p.maxDelay
	}
	jitter := float64(delay) * 0.25
	d := float64(delay) + (rand.Float64()*2-1)*jitter
	if d < float64(p.baseDelay) {
		d = float64(p.baseDelay)
	}
	return time.Duration(d)
}
