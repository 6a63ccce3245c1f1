package capture

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/GriffinCanCode/autotranslator/internal/errors"
)

// Session is one capture run bound to a source. It is closed exactly once.
type Session struct {
	ID      string
	Started time.Time

	src    Source
	mu     sync.Mutex
	closed bool
	frames int
}

// NewSession starts a session on src.
func NewSession(src Source) *Session {
	return &Session{ID: uuid.NewString(), Started: time.Now(), src: src}
}

// Source returns the underlying source name.
func (s *Session) Source() string { return s.src.Name() }

// Grab captures one frame. Fails once the session is closed.
func (s *Session) Grab(ctx context.Context) (*Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, apperrors.New(apperrors.CaptureFailed, "capture session closed").WithMetadata("session", s.ID)
	}
	s.frames++
	s.mu.Unlock()
	return s.src.Grab(ctx)
}

// Frames returns how many grabs were attempted.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the source. Later calls are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.src.Close()
}
