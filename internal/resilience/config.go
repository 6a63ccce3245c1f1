package resilience

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Circuit breaker configuration constants
const (
	DefaultThreshold         = 5
	DefaultResetTimeout      = 30 * time.Second
	DefaultHalfOpenSuccesses = 3

	// Per-tick inference calls: trip quickly, trial again after a few ticks.
	TickThreshold         = 3
	TickResetTimeout      = 10 * time.Second
	TickHalfOpenSuccesses = 1
)

// Config holds circuit breaker settings.
type Config struct {
	Name              string           // guarded service, used in logs
	Threshold         int              // failures before opening
	ResetTimeout      time.Duration    // wait before half-open attempt
	HalfOpenSuccesses int              // successes needed to close
	Counts            func(error) bool // whether an error counts as a failure
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:         DefaultThreshold,
		ResetTimeout:      DefaultResetTimeout,
		HalfOpenSuccesses: DefaultHalfOpenSuccesses,
	}
}

// TickConfig returns settings for calls made once per capture tick.
func TickConfig(name string) Config {
	return Config{
		Name:              name,
		Threshold:         TickThreshold,
		ResetTimeout:      TickResetTimeout,
		HalfOpenSuccesses: TickHalfOpenSuccesses,
	}
}

// CountsAsFailure treats server-side gRPC failures as breaker failures.
// Cancellation and invalid input say nothing about service health.
func CountsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return true
	}
	switch s.Code() {
	case codes.Canceled, codes.InvalidArgument, codes.NotFound:
		return false
	default:
		return true
	}
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "inference"
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	if c.Counts == nil {
		c.Counts = CountsAsFailure
	}
	return c
}
