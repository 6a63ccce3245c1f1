package grpcclient

import "time"

// Client configuration defaults
const (
	// Keepalive configuration
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// Per-call deadline for tick-path inference calls
	DefaultCallTimeout = 10 * time.Second

	// Model downloads can take minutes on slow links
	DefaultDownloadTimeout = 5 * time.Minute

	// Releasing a handle must not depend on the (possibly cancelled) caller context
	CloseTimeout = 2 * time.Second
)

// Breaker names, also used as keys in Breakers().
const (
	ServiceOCR         = "ocr"
	ServiceLanguage    = "language"
	ServiceTranslation = "translation"
)
