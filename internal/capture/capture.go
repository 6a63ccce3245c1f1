// Package capture grabs raw screen frames from a device or the local display
// and turns them into images for text extraction.
package capture

import (
	"context"
	"fmt"
)

// Source kinds accepted by Open.
const (
	KindDisplay = "display"
	KindADB     = "adb"
)

// Source produces raw frames. Implementations need not be safe for concurrent Grab calls.
type Source interface {
	Name() string
	Grab(ctx context.Context) (*Frame, error)
	Close() error
}

// Options configures the source backends.
type Options struct {
	Display int    // display index for KindDisplay
	ADBPath string // adb binary for KindADB
	Serial  string // device serial for KindADB, empty for the only attached device
}

// Open creates the source named by kind.
func Open(kind string, opts Options) (Source, error) {
	switch kind {
	case KindDisplay, "":
		return NewDisplaySource(opts.Display)
	case KindADB:
		return NewADBSource(opts.ADBPath, opts.Serial), nil
	default:
		return nil, fmt.Errorf("unknown capture source %q", kind)
	}
}
