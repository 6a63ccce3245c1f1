package pipeline

import "time"

// Pipeline defaults
const (
	DefaultInterval = 2 * time.Second
	DefaultTarget   = "en"

	// Perception hashes must match exactly before the pixel digest is compared.
	MaxHashDistance = 0

	// Bound on a single tick so a hung backend cannot pin the guard forever.
	DefaultTickTimeout = 30 * time.Second
)
