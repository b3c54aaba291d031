package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2.0,
		BreakerEnabled: false,
	}
}

func retryAll(error) Classification {
	return Classification{Retryable: true, RecordFailure: true}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	executor := NewExecutor(fastPolicy())

	calls := 0
	err := executor.Execute(context.Background(), "test.op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, retryAll)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteStopsAtMaxAttempts(t *testing.T) {
	executor := NewExecutor(fastPolicy())

	calls := 0
	sentinel := errors.New("always failing")
	err := executor.Execute(context.Background(), "test.op", func(context.Context) error {
		calls++
		return sentinel
	}, retryAll)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected the last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected MaxAttempts calls, got %d", calls)
	}
}

func TestExecuteDoesNotRetryNonRetryable(t *testing.T) {
	executor := NewExecutor(fastPolicy())

	calls := 0
	err := executor.Execute(context.Background(), "test.op", func(context.Context) error {
		calls++
		return errors.New("bad request")
	}, func(error) Classification {
		return Classification{Retryable: false}
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("non-retryable error must not retry, got %d calls", calls)
	}
}

func TestExecuteHonorsCancelledContext(t *testing.T) {
	executor := NewExecutor(fastPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := executor.Execute(ctx, "test.op", func(context.Context) error {
		calls++
		return nil
	}, retryAll)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("cancelled context must not invoke the callback")
	}
}

func TestExecuteOpensBreakerAfterFailures(t *testing.T) {
	policy := fastPolicy()
	policy.MaxAttempts = 1
	policy.BreakerEnabled = true
	policy.BreakerMinRequests = 3
	policy.BreakerFailureRatio = 0.5
	policy.BreakerOpenTimeout = time.Minute
	executor := NewExecutor(policy)

	failing := func(context.Context) error { return errors.New("down") }
	for i := 0; i < 3; i++ {
		if err := executor.Execute(context.Background(), "breaker.op", failing, retryAll); err == nil {
			t.Fatalf("expected failure on call %d", i)
		}
	}

	calls := 0
	err := executor.Execute(context.Background(), "breaker.op", func(context.Context) error {
		calls++
		return nil
	}, retryAll)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("open circuit must not invoke the callback")
	}
}

func TestExecuteBreakerIgnoresNonRecordedFailures(t *testing.T) {
	policy := fastPolicy()
	policy.MaxAttempts = 1
	policy.BreakerEnabled = true
	policy.BreakerMinRequests = 3
	policy.BreakerOpenTimeout = time.Minute
	executor := NewExecutor(policy)

	classify := func(error) Classification {
		return Classification{Retryable: false, RecordFailure: false}
	}
	failing := func(context.Context) error { return errors.New("client error") }
	for i := 0; i < 5; i++ {
		if err := executor.Execute(context.Background(), "noop.op", failing, classify); err == nil {
			t.Fatalf("expected failure on call %d", i)
		}
	}

	if err := executor.Execute(context.Background(), "noop.op", func(context.Context) error { return nil }, classify); err != nil {
		t.Fatalf("circuit must stay closed for non-recorded failures: %v", err)
	}
}

func TestPolicyNormalizeDefaults(t *testing.T) {
	normalized := Policy{}.normalize()
	def := DefaultPolicy()
	if normalized.MaxAttempts != def.MaxAttempts {
		t.Fatalf("expected default attempts, got %d", normalized.MaxAttempts)
	}
	if normalized.InitialBackoff != def.InitialBackoff || normalized.MaxBackoff != def.MaxBackoff {
		t.Fatalf("expected default backoff, got %+v", normalized)
	}
	if normalized.BreakerFailureRatio != def.BreakerFailureRatio {
		t.Fatalf("expected default failure ratio, got %v", normalized.BreakerFailureRatio)
	}
}

func TestPolicyNormalizeKeepsExplicitValues(t *testing.T) {
	policy := Policy{MaxAttempts: 7, InitialBackoff: time.Second, MaxBackoff: 500 * time.Millisecond}
	normalized := policy.normalize()
	if normalized.MaxAttempts != 7 {
		t.Fatalf("explicit attempts must survive, got %d", normalized.MaxAttempts)
	}
	if normalized.MaxBackoff != time.Second {
		t.Fatalf("max backoff must clamp up to the initial backoff, got %v", normalized.MaxBackoff)
	}
}
