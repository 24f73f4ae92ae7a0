package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing() error { return errBoom }
func succeeding() error { return nil }

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	for i := 0; i < 10; i++ {
		if err := b.Do(context.Background(), succeeding); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := b.Do(context.Background(), failing); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	if err := b.Do(context.Background(), succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(2, time.Minute)

	_ = b.Do(context.Background(), failing)
	if err := b.Do(context.Background(), succeeding); err != nil {
		t.Fatalf("success: %v", err)
	}
	// One more failure is below the threshold again.
	_ = b.Do(context.Background(), failing)
	if err := b.Do(context.Background(), succeeding); errors.Is(err, ErrCircuitOpen) {
		t.Fatal("circuit opened below the failure threshold")
	}
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewBreaker(1, time.Minute)
	b.now = func() time.Time { return now }

	_ = b.Do(context.Background(), failing)
	if err := b.Do(context.Background(), succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}

	// Cooldown elapsed: one probe is admitted and its success closes the
	// circuit for everyone.
	now = now.Add(time.Minute + time.Second)
	if err := b.Do(context.Background(), succeeding); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if err := b.Do(context.Background(), succeeding); err != nil {
		t.Fatalf("post-probe call: %v", err)
	}
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewBreaker(1, time.Minute)
	b.now = func() time.Time { return now }

	_ = b.Do(context.Background(), failing)

	now = now.Add(2 * time.Minute)
	if err := b.Do(context.Background(), failing); !errors.Is(err, errBoom) {
		t.Fatalf("probe should run, got %v", err)
	}
	if err := b.Do(context.Background(), succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("failed probe should reopen the circuit, got %v", err)
	}
}

func TestBreakerRespectsContext(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Do(ctx, succeeding); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
