package redis

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = 0 // calls pass through
	StateOpen     State = 1 // calls rejected until resetTimeout elapses
	StateHalfOpen State = 2 // one probe allowed through
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("redis: circuit breaker is open")

// CircuitBreaker stops hammering Redis once it is unreachable. After
// maxFailures consecutive failures it opens and rejects calls for
// resetTimeout, then lets a single probe through. The probe's outcome closes
// or reopens the breaker.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	openedAt     time.Time
	probing      bool
	now          func() time.Time

	// IsFailure decides which errors count against the breaker. A cache miss
	// is an answer from a healthy server, so the default ignores it.
	IsFailure func(error) bool

	// OnStateChange, when set, is called on every transition with mu held.
	OnStateChange func(from, to State)
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
		now:          time.Now,
		IsFailure:    func(err error) bool { return err != nil },
	}
}

// Execute runs fn through the breaker. It returns ErrCircuitOpen without
// calling fn while the breaker is open or a probe is already in flight.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	isProbe := false
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) <= cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		isProbe = true
	case StateHalfOpen:
		if cb.probing {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		isProbe = true
	}
	if isProbe {
		cb.probing = true
	}
	cb.mu.Unlock()

	err := fn()
	failed := cb.IsFailure(err)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if isProbe {
		cb.probing = false
		if failed {
			cb.openedAt = cb.now()
			cb.transition(StateOpen)
		} else {
			cb.transition(StateClosed)
		}
		return err
	}

	// Calls admitted while closed only count if the breaker is still closed.
	if cb.state != StateClosed {
		return err
	}
	if failed {
		cb.failures++
		if cb.failures >= cb.maxFailures {
			cb.openedAt = cb.now()
			cb.transition(StateOpen)
		}
		return err
	}
	cb.failures = 0
	return err
}

// CurrentState returns the current circuit breaker state.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.OnStateChange != nil {
		cb.OnStateChange(from, to)
	}
}
