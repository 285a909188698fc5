package resilience

import (
	"errors"
	"testing"
	"time"
)

func newTestBreaker(now *time.Time) *CircuitBreaker {
	b := NewCircuitBreaker(CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      5 * time.Second,
		HalfOpenMaxReq:   1,
	})
	b.now = func() time.Time { return *now }
	return b
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	b := newTestBreaker(&now)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected allow in closed state: %v", err)
	}
	b.RecordFailure()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("unexpected state after one failure: got=%s want=%s", state, CircuitStateClosed)
	}
	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("unexpected state after threshold: got=%s want=%s", state, CircuitStateOpen)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe to pass: %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second probe must be rejected while first is in flight, got %v", err)
	}
	b.RecordSuccess()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("unexpected state after probe success: got=%s want=%s", state, CircuitStateClosed)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	b := newTestBreaker(&now)
	b.RecordFailure()
	b.RecordFailure()

	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe: %v", err)
	}
	b.RecordFailure()
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected breaker to reopen, got %v", err)
	}
}

func TestCircuitBreaker_RecordClassifiesErrors(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	b := newTestBreaker(&now)
	transient := errors.New("timeout")
	notFound := errors.New("not found")
	isTransient := func(err error) bool { return errors.Is(err, transient) }

	b.Record(notFound, isTransient)
	b.Record(notFound, isTransient)
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("non-transient errors must not trip the breaker, got %s", state)
	}
	b.Record(transient, isTransient)
	b.Record(transient, isTransient)
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("transient errors must trip the breaker, got %s", state)
	}
}

func TestCircuitBreaker_DisabledAlwaysAllows(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker(CircuitBreakerConfig{Enabled: false, FailureThreshold: 1})
	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("disabled breaker must allow: %v", err)
	}
}
