// Package resilience guards calls into the inference services.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State is the breaker position.
type State uint8

const (
	Closed   State = iota // calls flow
	Open                  // calls fail fast
	HalfOpen              // one trial call at a time
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned while the breaker is failing fast.
var ErrOpen = errors.New("circuit breaker open")

// Stats is a point-in-time view of a breaker for status reporting.
type Stats struct {
	State    string    `json:"state"`
	Failures int       `json:"consecutive_failures"`
	Rejected uint64    `json:"rejected"`
	OpenedAt time.Time `json:"opened_at,omitzero"`
}

// Breaker trips after consecutive failures of one inference service.
// While open, ticks that need the service are dropped without a network round trip;
// after ResetTimeout a single trial call decides whether it closes again.
type Breaker struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probing   bool
	openedAt  time.Time
	rejected  uint64
}

// New creates a closed breaker.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg.withDefaults(), now: time.Now}
}

// Name returns the guarded service name.
func (b *Breaker) Name() string { return b.cfg.Name }

// Allow reports whether a call may proceed. A nil return in the half-open
// state reserves the trial; the caller must report Success or Failure.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			b.rejected++
			return ErrOpen
		}
		b.setState(HalfOpen)
		b.probing = true
	case HalfOpen:
		if b.probing {
			b.rejected++
			return ErrOpen
		}
		b.probing = true
	}
	return nil
}

// Success records a healthy response.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.probing = false
		b.successes++
		if b.successes >= b.cfg.HalfOpenSuccesses {
			b.setState(Closed)
		}
	case Closed:
		b.failures = 0
	}
}

// Failure records a failed call.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	switch b.state {
	case HalfOpen:
		b.setState(Open)
	case Closed:
		if b.failures >= b.cfg.Threshold {
			b.setState(Open)
		}
	}
}

// release frees a half-open trial without judging service health.
func (b *Breaker) release() {
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a snapshot for status endpoints.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := Stats{State: b.state.String(), Failures: b.failures, Rejected: b.rejected}
	if b.state != Closed {
		st.OpenedAt = b.openedAt
	}
	return st
}

// setState must be called with mu held.
func (b *Breaker) setState(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.successes = 0
	b.probing = false

	log := slog.With("service", b.cfg.Name, "from", from.String())
	switch to {
	case Closed:
		b.failures = 0
		log.Info("circuit breaker closed")
	case Open:
		b.openedAt = b.now()
		log.Warn("circuit breaker opened", "failures", b.failures, "retry_after", b.cfg.ResetTimeout)
	case HalfOpen:
		log.Info("circuit breaker probing")
	}
}

// Call runs fn under b. Errors that Config.Counts rejects, such as cancellation
// or a malformed request, neither trip nor close the breaker.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if err := b.Allow(); err != nil {
		return zero, err
	}
	out, err := fn()
	switch {
	case err == nil:
		b.Success()
		return out, nil
	case b.cfg.Counts(err):
		b.Failure()
	default:
		b.release()
	}
	return zero, err
}
