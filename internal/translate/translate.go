// Package translate owns translator handles: creation through a Factory,
// reuse through a Cache keyed by language pair, and release on shutdown.
package translate

import (
	"context"
	"fmt"
	"time"
)

// Translator is a live handle bound to one source/target pair.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
	Close() error
}

// Factory creates translator handles.
type Factory interface {
	NewTranslator(ctx context.Context, source, target string) (Translator, error)
}

// ModelDownloader fetches translation models ahead of first use.
type ModelDownloader interface {
	DownloadModel(ctx context.Context, source, target string) error
}

// Key identifies a language pair in the cache, e.g. "es->en".
func Key(source, target string) string {
	return source + "->" + target
}

// Result is one completed translation. Values are never mutated after creation.
type Result struct {
	Original string    `json:"original"`
	Text     string    `json:"text"`
	Source   string    `json:"source"`
	Target   string    `json:"target"`
	At       time.Time `json:"at"`
}

// IsZero reports whether no translation has been produced yet.
func (r Result) IsZero() bool { return r.Text == "" && r.At.IsZero() }

// Display renders the overlay text: "[es → en]" header, blank line, translation.
func (r Result) Display() string {
	if r.IsZero() {
		return ""
	}
	return fmt.Sprintf("[%s → %s]\n\n%s", r.Source, r.Target, r.Text)
}
