package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithExponentialBackoff_Success(t *testing.T) {
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return nil
	})
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_SuccessAfterRetries(t *testing.T) {
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, WithInitialDelay(5*time.Millisecond))
	if err != nil {
		t.Errorf("Expected no error after retries, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_MaxRetries(t *testing.T) {
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return errors.New("persistent error")
	}, WithMaxRetries(3), WithInitialDelay(5*time.Millisecond))
	if err == nil {
		t.Error("Expected error after max retries, got nil")
	}
	// Retries come after the first attempt, so total attempts = retries + 1.
	if attempts != 4 {
		t.Errorf("Expected 4 attempts, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_Fatal(t *testing.T) {
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return Fatal(errors.New("bad input"))
	}, WithInitialDelay(5*time.Millisecond))
	if err == nil {
		t.Error("Expected error, got nil")
	}
	if attempts != 1 {
		t.Errorf("Expected fatal error to stop retries, got %d attempts", attempts)
	}
}

func TestWithExponentialBackoff_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithExponentialBackoff(ctx, func() error {
		return errors.New("error")
	}, WithInitialDelay(5*time.Millisecond))
	if err == nil {
		t.Error("Expected error due to context cancellation, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled error, got: %v", err)
	}
}

func TestRetryIf(t *testing.T) {
	transient := errors.New("transient")
	if err := RetryIf(nil, func(error) bool { return true }); err != nil {
		t.Errorf("Expected nil, got: %v", err)
	}
	if err := RetryIf(transient, func(e error) bool { return errors.Is(e, transient) }); IsFatal(err) {
		t.Error("Expected matching error to stay retryable")
	}
	if err := RetryIf(errors.New("other"), func(e error) bool { return errors.Is(e, transient) }); !IsFatal(err) {
		t.Error("Expected non-matching error to become fatal")
	}
}
