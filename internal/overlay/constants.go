package overlay

import "time"

// Overlay configuration constants
const (
	// Initial overlay placement, top-left anchored
	InitialX = 0
	InitialY = 100

	// Per-connection rate limiting for drag updates
	RateLimitMessages = 60
	RateLimitWindow   = time.Second

	// Bound on a single push to a slow client
	WriteTimeout = 5 * time.Second

	// History entries returned when no limit is given
	DefaultHistoryLimit = 20
)
