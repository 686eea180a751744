package backoff

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

var errTemporary = errors.New("temporary error")

func TestPolicyDelay(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		attempt int
		random  float64
		want    time.Duration
	}{
		{
			name:    "first attempt with no jitter",
			policy:  Policy{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2},
			attempt: 1,
			random:  0.5,
			want:    100 * time.Millisecond,
		},
		{
			name:    "third attempt quadruples",
			policy:  Policy{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2},
			attempt: 3,
			random:  0.5,
			want:    400 * time.Millisecond,
		},
		{
			name:    "clamped to max",
			policy:  Policy{Initial: 100 * time.Millisecond, Max: 500 * time.Millisecond, Factor: 2},
			attempt: 10,
			want:    500 * time.Millisecond,
		},
		{
			name:    "with 10% jitter at max random",
			policy:  Policy{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2, Jitter: 0.1},
			attempt: 1,
			random:  1.0,
			want:    110 * time.Millisecond,
		},
		{
			name:    "attempt zero treated as first",
			policy:  Policy{Initial: 100 * time.Millisecond, Factor: 2},
			attempt: 0,
			want:    100 * time.Millisecond,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Delay(tt.attempt, tt.random); got != tt.want {
				t.Errorf("Delay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func fastPolicy() Policy {
	return Policy{Initial: time.Millisecond, Max: 5 * time.Millisecond, Factor: 2}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	var calls atomic.Int32
	err := Retry(context.Background(), fastPolicy(), 5, func(context.Context) error {
		if calls.Add(1) < 3 {
			return errTemporary
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestRetryExhausted(t *testing.T) {
	var calls atomic.Int32
	err := Retry(context.Background(), fastPolicy(), 3, func(context.Context) error {
		calls.Add(1)
		return errTemporary
	})
	if !errors.Is(err, ErrAttemptsExhausted) || !errors.Is(err, errTemporary) {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestRetryPermanent(t *testing.T) {
	var calls atomic.Int32
	err := Retry(context.Background(), fastPolicy(), 5, func(context.Context) error {
		calls.Add(1)
		return Permanent(errTemporary)
	})
	if !errors.Is(err, errTemporary) || errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
	if Permanent(nil) != nil {
		t.Fatal("Permanent(nil) should be nil")
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{Initial: time.Hour, Factor: 1}
	var calls atomic.Int32
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Retry(ctx, policy, 3, func(context.Context) error {
		calls.Add(1)
		return errTemporary
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Retry() error = %v, want context.Canceled", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Fatalf("Sleep(0) error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep() error = %v", err)
	}
}
