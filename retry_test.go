package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func fastPolicy(maxRetries int) retryPolicy {
	return retryPolicy{
		maxRetries: maxRetries,
		baseDelay:  time.Millisecond,
		maxDelay:   5 * time.Millisecond,
	}
}

func TestRetryCompletionSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	text, err := retryCompletion(context.Background(), fastPolicy(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", &completionError{kind: errRateLimited, err: errors.New("429")}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if text != "ok" {
		t.Fatalf("expected 'ok', got %q", text)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryCompletionPropagatesNonRetryableImmediately(t *testing.T) {
	calls := 0
	wantErr := &completionError{kind: errContextExceeded, err: errors.New("too big")}
	_, err := retryCompletion(context.Background(), fastPolicy(5), func() (string, error) {
		calls++
		return "", wantErr
	})
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for non-retryable error, got %d", calls)
	}
	var ce *completionError
	if !errors.As(err, &ce) || ce.kind != errContextExceeded {
		t.Fatalf("expected original classification preserved, got %v", err)
	}
}

func TestRetryCompletionExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := retryCompletion(context.Background(), fastPolicy(2), func() (string, error) {
		calls++
		return "", &completionError{kind: errServiceUnavailable, err: errors.New("down")}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", calls)
	}
	if !strings.Contains(err.Error(), "giving up") {
		t.Fatalf("expected exhaustion error, got %v", err)
	}
	// The last classification must survive wrapping so the engine can
	// still react to it.
	var ce *completionError
	if !errors.As(err, &ce) || ce.kind != errServiceUnavailable {
		t.Fatalf("expected wrapped classification, got %v", err)
	}
}

func TestRetryCompletionStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = retryCompletion(ctx, retryPolicy{maxRetries: 5, baseDelay: time.Minute, maxDelay: time.Minute}, func() (string, error) {
			calls++
			return "", &completionError{kind: errRateLimited, err: errors.New("429")}
		})
	}()

	// Cancel while the helper waits out the first backoff delay.
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retryCompletion did not return after cancel")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancel, got %d", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDelayForBacksOffAndCaps(t *testing.T) {
	p := retryPolicy{maxRetries: 5, baseDelay: 100 * time.Millisecond, maxDelay: time.Second}

	first := p.delayFor(1)
	if first < p.baseDelay || first > 200*time.Millisecond {
		t.Fatalf("expected first delay near base, got %s", first)
	}
	// Jitter is ±25%, so even the largest attempt stays within 125% of cap.
	huge := p.delayFor(10)
	if huge > time.Second+time.Second/4 {
		t.Fatalf("expected delay capped near maxDelay, got %s", huge)
	}
	if huge < p.baseDelay {
		t.Fatalf("expected delay at least baseDelay, got %s", huge)
	}
}
