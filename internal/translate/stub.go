package translate

import (
	"context"
	"sync"
	"sync/atomic"
)

// StubFactory produces deterministic dictionary translators for offline runs and tests.
type StubFactory struct {
	// Dictionary maps source language -> source text -> translation.
	// Misses render as "[src] text".
	Dictionary map[string]map[string]string

	mu      sync.Mutex
	opened  map[string]int
	closed  atomic.Int32
	calls   atomic.Int32
	lastSrc atomic.Value
}

// NewStubFactory creates a stub factory with the given dictionary (may be nil).
func NewStubFactory(dict map[string]map[string]string) *StubFactory {
	return &StubFactory{Dictionary: dict, opened: make(map[string]int)}
}

// NewTranslator implements Factory.
func (f *StubFactory) NewTranslator(_ context.Context, source, target string) (Translator, error) {
	f.mu.Lock()
	f.opened[Key(source, target)]++
	f.mu.Unlock()
	return &stubTranslator{f: f, source: source, target: target}, nil
}

// DownloadModel implements ModelDownloader; models are always present.
func (f *StubFactory) DownloadModel(context.Context, string, string) error { return nil }

// Opened returns how many handles were opened for source->target.
func (f *StubFactory) Opened(source, target string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened[Key(source, target)]
}

// Closed returns how many handles were closed.
func (f *StubFactory) Closed() int { return int(f.closed.Load()) }

// Calls returns how many Translate calls were made across all handles.
func (f *StubFactory) Calls() int { return int(f.calls.Load()) }

// LastSource returns the source language of the most recent Translate call.
func (f *StubFactory) LastSource() string {
	s, _ := f.lastSrc.Load().(string)
	return s
}

type stubTranslator struct {
	f      *StubFactory
	source string
	target string
}

func (t *stubTranslator) Translate(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.f.calls.Add(1)
	t.f.lastSrc.Store(t.source)
	if dict, ok := t.f.Dictionary[t.source]; ok {
		if out, ok := dict[text]; ok {
			return out, nil
		}
	}
	return "[" + t.source + "] " + text, nil
}

func (t *stubTranslator) Close() error {
	t.f.closed.Add(1)
	return nil
}
