package rewards

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryDoRetriesTransientErrors(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		return transient(errors.New("conflict"), "attempt %d", attempts)
	})
	if !IsTransient(err) {
		t.Errorf("final error = %v, want transient", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want full budget of 3", attempts)
	}
}

func TestRetryDoStopsOnNonTransientError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Millisecond}

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		return invalidInput("bad request")
	})
	if !IsInvalidInput(err) {
		t.Errorf("error = %v, want invalid input", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1", attempts)
	}
}

func TestRetryDoSucceedsMidBudget(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Millisecond}

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return transient(errors.New("conflict"), "not yet")
		}
		return nil
	})
	if err != nil {
		t.Errorf("error = %v, want success", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryDoHonorsContextCancellation(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 10, InitialBackoff: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, func() error {
			attempts++
			return transient(errors.New("conflict"), "keep going")
		})
	}()
	cancel()

	select {
	case err := <-done:
		if !IsTransient(err) {
			t.Errorf("error after cancel = %v, want transient wrapper", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 before the backoff wait", attempts)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:       5,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        40 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}.normalized()

	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 10 * time.Millisecond},
		{1, 20 * time.Millisecond},
		{2, 40 * time.Millisecond},
		{3, 40 * time.Millisecond},
	}
	for _, tc := range tests {
		if got := policy.backoff(tc.n); got != tc.want {
			t.Errorf("backoff(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}
}

func TestNormalizedFillsDefaults(t *testing.T) {
	got := RetryPolicy{}.normalized()
	want := DefaultRetryPolicy()
	want.Jitter = 0
	if got != want {
		t.Errorf("normalized zero policy = %+v, want %+v", got, want)
	}
}
