package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fakeClock advances only when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New(cfg)
	b.now = clock.Now
	return b, clock
}

var errUnavailable = status.Error(codes.Unavailable, "inference server down")

func fail(b *Breaker) error {
	_, err := Call(b, func() (string, error) { return "", errUnavailable })
	return err
}

func succeed(b *Breaker) error {
	_, err := Call(b, func() (string, error) { return "ok", nil })
	return err
}

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(TickConfig("ocr"))

	for i := 0; i < TickThreshold-1; i++ {
		_ = fail(b)
	}
	if b.State() != Closed {
		t.Fatalf("state after %d failures = %v, want closed", TickThreshold-1, b.State())
	}
	_ = fail(b)
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}

	calls := 0
	_, err := Call(b, func() (int, error) { calls++; return 0, nil })
	if !errors.Is(err, ErrOpen) || calls != 0 {
		t.Errorf("open breaker: err = %v, calls = %d; want ErrOpen and no call", err, calls)
	}
	if st := b.Stats(); st.Rejected != 1 || st.OpenedAt.IsZero() {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	b, _ := newTestBreaker(TickConfig("language"))

	for i := 0; i < 10; i++ {
		_ = fail(b)
		_ = fail(b)
		_ = succeed(b)
	}
	if b.State() != Closed {
		t.Errorf("interleaved successes should keep the breaker closed, got %v", b.State())
	}
}

func TestBreakerHalfOpenSingleTrial(t *testing.T) {
	b, clock := newTestBreaker(Config{Name: "translation", Threshold: 1, ResetTimeout: 10 * time.Second, HalfOpenSuccesses: 1})
	_ = fail(b)

	clock.Advance(9 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("Allow() before reset timeout = %v, want ErrOpen", err)
	}

	clock.Advance(2 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() after reset timeout = %v, want trial", err)
	}
	if b.State() != HalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("second caller during trial = %v, want ErrOpen", err)
	}

	b.Success()
	if b.State() != Closed {
		t.Errorf("state after trial success = %v, want closed", b.State())
	}
	if st := b.Stats(); !st.OpenedAt.IsZero() || st.Failures != 0 {
		t.Errorf("closed Stats() = %+v", st)
	}
}

func TestBreakerReopensOnFailedTrial(t *testing.T) {
	b, clock := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Second, HalfOpenSuccesses: 1})
	_ = fail(b)
	firstOpen := b.Stats().OpenedAt

	clock.Advance(2 * time.Second)
	_ = fail(b)

	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}
	if !b.Stats().OpenedAt.After(firstOpen) {
		t.Error("failed trial should restart the open period")
	}
}

func TestBreakerNeedsConsecutiveTrialSuccesses(t *testing.T) {
	b, clock := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Second, HalfOpenSuccesses: 2})
	_ = fail(b)
	clock.Advance(2 * time.Second)

	if err := succeed(b); err != nil {
		t.Fatal(err)
	}
	if b.State() != HalfOpen {
		t.Fatalf("state after one trial = %v, want half-open", b.State())
	}
	if err := succeed(b); err != nil {
		t.Fatal(err)
	}
	if b.State() != Closed {
		t.Errorf("state after two trials = %v, want closed", b.State())
	}
}

func TestCallIgnoresCallerErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"cancelled context", context.Canceled},
		{"wrapped cancellation", fmt.Errorf("ocr: %w", context.Canceled)},
		{"grpc canceled", status.Error(codes.Canceled, "client went away")},
		{"invalid image", status.Error(codes.InvalidArgument, "not a png")},
		{"unknown translator", status.Error(codes.NotFound, "no such handle")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBreaker(Config{Threshold: 1})
			_, err := Call(b, func() (int, error) { return 0, tt.err })
			if !errors.Is(err, tt.err) {
				t.Errorf("Call() error = %v, want %v", err, tt.err)
			}
			if b.State() != Closed {
				t.Errorf("state = %v, want closed", b.State())
			}
		})
	}
}

func TestCallerErrorReleasesTrial(t *testing.T) {
	b, clock := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Second, HalfOpenSuccesses: 1})
	_ = fail(b)
	clock.Advance(2 * time.Second)

	_, _ = Call(b, func() (int, error) { return 0, context.Canceled })
	if b.State() != HalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}
	if err := succeed(b); err != nil {
		t.Errorf("next trial should be allowed, got %v", err)
	}
	if b.State() != Closed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreakerConcurrentSafety(t *testing.T) {
	b := New(Config{Threshold: 1000, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				_ = fail(b)
			} else {
				_ = succeed(b)
			}
			_ = b.Stats()
		}(i)
	}
	wg.Wait()

	if b.State() != Closed {
		t.Errorf("state = %v, want closed below threshold", b.State())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Closed, "closed"},
		{Open, "open"},
		{HalfOpen, "half-open"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	b := New(Config{})
	if b.Name() != "inference" {
		t.Errorf("Name() = %q, want inference", b.Name())
	}
	if b.cfg.Threshold != DefaultThreshold || b.cfg.ResetTimeout != DefaultResetTimeout || b.cfg.HalfOpenSuccesses != DefaultHalfOpenSuccesses {
		t.Errorf("defaults not applied: %+v", b.cfg)
	}
	if b.cfg.Counts == nil {
		t.Error("Counts should default to CountsAsFailure")
	}
}

func TestTickConfig(t *testing.T) {
	cfg := TickConfig("ocr")
	if cfg.Name != "ocr" || cfg.Threshold != TickThreshold || cfg.HalfOpenSuccesses != TickHalfOpenSuccesses {
		t.Errorf("TickConfig() = %+v", cfg)
	}
}

func TestCountsAsFailure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("connection reset"), true},
		{errUnavailable, true},
		{status.Error(codes.DeadlineExceeded, "slow"), true},
		{status.Error(codes.Internal, "model crashed"), true},
		{status.Error(codes.InvalidArgument, "bad"), false},
	}
	for _, tt := range tests {
		if got := CountsAsFailure(tt.err); got != tt.want {
			t.Errorf("CountsAsFailure(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
