package redis

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int) (*CircuitBreaker, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := NewCircuitBreaker(maxFailures, time.Second)
	cb.now = clk.now
	return cb, clk
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb, _ := newTestBreaker(3)
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb, _ := newTestBreaker(3)
	errFail := errors.New("fail")

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errFail }); err != errFail {
			t.Fatalf("expected errFail, got %v", err)
		}
	}
	if cb.CurrentState() != StateOpen {
		t.Errorf("expected Open after 3 failures, got %v", cb.CurrentState())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if err != ErrCircuitOpen || called {
		t.Errorf("expected ErrCircuitOpen without calling fn, got %v (called=%v)", err, called)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clk := newTestBreaker(2)
	errFail := errors.New("fail")
	for i := 0; i < 2; i++ {
		cb.Execute(func() error { return errFail })
	}

	clk.advance(1500 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed after successful probe, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_HalfOpenFailure(t *testing.T) {
	cb, clk := newTestBreaker(2)
	errFail := errors.New("fail")
	for i := 0; i < 2; i++ {
		cb.Execute(func() error { return errFail })
	}

	clk.advance(2 * time.Second)
	cb.Execute(func() error { return errFail })

	if cb.CurrentState() != StateOpen {
		t.Errorf("expected Open after failed probe, got %v", cb.CurrentState())
	}
	// The failed probe restarts the open window.
	if err := cb.Execute(func() error { return nil }); err != ErrCircuitOpen {
		t.Errorf("expected ErrCircuitOpen right after failed probe, got %v", err)
	}
}

func TestCircuitBreaker_SingleProbe(t *testing.T) {
	cb, clk := newTestBreaker(1)
	cb.Execute(func() error { return errors.New("fail") })
	clk.advance(2 * time.Second)

	err := cb.Execute(func() error {
		// A concurrent caller while the probe is in flight is rejected.
		if inner := cb.Execute(func() error { return nil }); inner != ErrCircuitOpen {
			t.Errorf("second caller during probe: %v", inner)
		}
		return nil
	})
	if err != nil || cb.CurrentState() != StateClosed {
		t.Errorf("probe result %v, state %v", err, cb.CurrentState())
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(3)
	errFail := errors.New("fail")

	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return nil })
	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return errFail })

	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed (counter should have reset), got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	cb, _ := newTestBreaker(1)
	errMiss := errors.New("miss")
	cb.IsFailure = func(err error) bool { return err != nil && err != errMiss }

	for i := 0; i < 5; i++ {
		if err := cb.Execute(func() error { return errMiss }); err != errMiss {
			t.Fatalf("expected errMiss passed through, got %v", err)
		}
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("ignored errors tripped the breaker")
	}
}

func TestCircuitBreaker_OnStateChangeCallback(t *testing.T) {
	cb, clk := newTestBreaker(1)
	var transitions []State
	cb.OnStateChange = func(from, to State) {
		transitions = append(transitions, to)
	}

	cb.Execute(func() error { return errors.New("fail") })
	if len(transitions) != 1 || transitions[0] != StateOpen {
		t.Errorf("expected [Open], got %v", transitions)
	}

	clk.advance(2 * time.Second)
	cb.Execute(func() error { return nil })

	if len(transitions) != 3 {
		t.Fatalf("expected 3 transitions, got %d: %v", len(transitions), transitions)
	}
	if transitions[1] != StateHalfOpen || transitions[2] != StateClosed {
		t.Errorf("expected [Open, HalfOpen, Closed], got %v", transitions)
	}
}

func TestCircuitBreaker_StaleCallDoesNotSettleProbe(t *testing.T) {
	cb, clk := newTestBreaker(1)
	errFail := errors.New("fail")

	// slow is admitted while closed and finishes after the probe started.
	slowRelease, slowDone := make(chan struct{}), make(chan error, 1)
	slowStarted := make(chan struct{})
	go func() {
		slowDone <- cb.Execute(func() error { close(slowStarted); <-slowRelease; return nil })
	}()
	<-slowStarted

	cb.Execute(func() error { return errFail })
	if cb.CurrentState() != StateOpen {
		t.Fatalf("expected Open, got %v", cb.CurrentState())
	}
	clk.advance(2 * time.Second)

	probeRelease, probeDone := make(chan struct{}), make(chan error, 1)
	probeStarted := make(chan struct{})
	go func() {
		probeDone <- cb.Execute(func() error { close(probeStarted); <-probeRelease; return errFail })
	}()
	<-probeStarted

	close(slowRelease)
	if err := <-slowDone; err != nil {
		t.Fatalf("slow call: %v", err)
	}
	if cb.CurrentState() != StateHalfOpen {
		t.Errorf("stale success moved the breaker to %v", cb.CurrentState())
	}
	called := false
	if err := cb.Execute(func() error { called = true; return nil }); err != ErrCircuitOpen || called {
		t.Errorf("second probe admitted: err=%v called=%v", err, called)
	}

	close(probeRelease)
	if err := <-probeDone; err != errFail {
		t.Fatalf("probe: %v", err)
	}
	if cb.CurrentState() != StateOpen {
		t.Errorf("expected Open after failed probe, got %v", cb.CurrentState())
	}
}
