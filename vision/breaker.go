package vision

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls are rejected
	StateHalfOpen              // a single trial call decides, others are rejected
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("vision: circuit breaker is open")

// Breaker wraps a Describer and stops calling it after repeated failures.
//
//	Closed -> Open after threshold consecutive failures
//	Open -> HalfOpen once cooldown has passed
//	HalfOpen -> Closed on success, Open on failure
//
// Only one trial call is admitted while half-open. Context cancellation does
// not count as a failure; a cancelled trial frees the slot for the next caller.
type Breaker struct {
	next      Describer
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu            sync.Mutex
	state         State
	failures      int
	openedAt      time.Time
	trialInFlight bool
}

// NewBreaker wraps next. A threshold below 1 is treated as 1.
func NewBreaker(next Describer, threshold int, cooldown time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{next: next, threshold: threshold, cooldown: cooldown, now: time.Now}
}

func (b *Breaker) Describe(ctx context.Context, image []byte, mime, prompt string) (string, error) {
	trial, ok := b.allow()
	if !ok {
		return "", ErrCircuitOpen
	}
	text, err := b.next.Describe(ctx, image, mime, prompt)
	b.record(err, trial)
	return text, err
}

// allow reports whether a call may proceed and whether it is the half-open
// trial.
func (b *Breaker) allow() (trial, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false, false
		}
		b.state = StateHalfOpen
	}
	if b.state == StateHalfOpen {
		if b.trialInFlight {
			return false, false
		}
		b.trialInFlight = true
		return true, true
	}
	return false, true
}

func (b *Breaker) record(err error, trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if trial {
		b.trialInFlight = false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	if err == nil {
		b.failures = 0
		b.state = StateClosed
		return
	}
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.threshold {
		b.state = StateOpen
		b.openedAt = b.now()
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
