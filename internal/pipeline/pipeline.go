// Package pipeline runs the capture loop: grab a frame on every tick, extract its text,
// and translate text that changed into the shared overlay state.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/autotranslator/internal/capture"
	"github.com/GriffinCanCode/autotranslator/internal/history"
	"github.com/GriffinCanCode/autotranslator/internal/lang"
	"github.com/GriffinCanCode/autotranslator/internal/notify"
	"github.com/GriffinCanCode/autotranslator/internal/ocr"
	"github.com/GriffinCanCode/autotranslator/internal/syncx"
	"github.com/GriffinCanCode/autotranslator/internal/trace"
	"github.com/GriffinCanCode/autotranslator/internal/translate"
)

// ErrNotRunning is returned by Stop when no session is active.
var ErrNotRunning = errors.New("capture not running")

// Config holds loop settings.
type Config struct {
	Interval          time.Duration
	Target            string
	MaxWidth          int
	MaxHeight         int
	SkipSimilarFrames bool
	TickTimeout       time.Duration
}

// Deps are the collaborators a pipeline drives. History and Notifier may be nil.
type Deps struct {
	Open        func() (capture.Source, error)
	OCR         ocr.Extractor
	Detector    lang.Detector
	Translators *translate.Cache
	State       *syncx.Cell[translate.Result]
	History     history.Store
	Notifier    notify.Notifier
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Running     bool      `json:"running"`
	Stopping    bool      `json:"stopping,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	Source      string    `json:"source,omitempty"`
	Started     time.Time `json:"started,omitzero"`
	Ticks       uint64    `json:"ticks"`
	Dropped     uint64    `json:"dropped"`
	Translated  uint64    `json:"translated"`
	Failures    uint64    `json:"failures"`
	Translators []string  `json:"translators"`
}

// Pipeline owns one capture session at a time. Start and Stop may be called repeatedly.
type Pipeline struct {
	cfg  Config
	deps Deps

	busy    atomic.Bool
	filter  changeFilter
	skipper frameSkipper

	ticks      atomic.Uint64
	dropped    atomic.Uint64
	translated atomic.Uint64
	failures   atomic.Uint64

	// lifecycle serializes Start and Stop. mu guards the fields below and
	// is never held while waiting on the loop.
	lifecycle sync.Mutex

	mu       sync.Mutex
	session  *capture.Session
	stopping bool
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	done     chan struct{}
}

// New creates a stopped pipeline.
func New(cfg Config, deps Deps) *Pipeline {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Target == "" {
		cfg.Target = DefaultTarget
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = DefaultTickTimeout
	}
	if deps.State == nil {
		deps.State = syncx.NewCell(translate.Result{})
	}
	return &Pipeline{cfg: cfg, deps: deps}
}

// State returns the shared translation cell.
func (p *Pipeline) State() *syncx.Cell[translate.Result] { return p.deps.State }

// Start opens a new capture session and begins ticking. Starting a running pipeline is a no-op.
// The loop outlives ctx's cancellation; call Stop to end it.
func (p *Pipeline) Start(ctx context.Context) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		return nil
	}

	src, err := p.deps.Open()
	if err != nil {
		return err
	}
	session := capture.NewSession(src)
	p.filter.reset()
	p.skipper.reset()

	scope, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.session = session
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(scope, session, p.done)

	trace.Logger(ctx).Info("capture started",
		"session", session.ID,
		"source", session.Source(),
		"interval", p.cfg.Interval,
		"target", p.cfg.Target)
	return nil
}

// Stop cancels the session, waits for in-flight work, then releases the
// session and every translator handle. Status stays readable while it waits.
func (p *Pipeline) Stop() error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.mu.Lock()
	session, cancel, done := p.session, p.cancel, p.done
	if session == nil {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.stopping = true
	p.mu.Unlock()

	cancel()
	<-done
	p.inflight.Wait()

	errs := []error{session.Close()}
	if p.deps.Translators != nil {
		errs = append(errs, p.deps.Translators.Close())
	}

	trace.Logger(context.Background()).Info("capture stopped",
		"session", session.ID,
		"frames", session.Frames(),
		"translated", p.translated.Load())

	p.mu.Lock()
	p.session = nil
	p.cancel = nil
	p.done = nil
	p.stopping = false
	p.mu.Unlock()
	return errors.Join(errs...)
}

// Running reports whether a session is active and not shutting down.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil && !p.stopping
}

// Status returns counters and the active session.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	session, stopping := p.session, p.stopping
	p.mu.Unlock()

	st := Status{
		Ticks:       p.ticks.Load(),
		Dropped:     p.dropped.Load(),
		Translated:  p.translated.Load(),
		Failures:    p.failures.Load(),
		Translators: []string{},
	}
	if session != nil {
		st.Running = !stopping
		st.Stopping = stopping
		st.SessionID = session.ID
		st.Source = session.Source()
		st.Started = session.Started
	}
	if p.deps.Translators != nil {
		st.Translators = p.deps.Translators.Keys()
	}
	return st
}

func (p *Pipeline) run(ctx context.Context, s *capture.Session, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, s)
		}
	}
}

// tick starts processing a frame unless one is already in flight.
// Reports whether processing started.
func (p *Pipeline) tick(ctx context.Context, s *capture.Session) bool {
	p.ticks.Add(1)
	if !p.busy.CompareAndSwap(false, true) {
		p.dropped.Add(1)
		return false
	}

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer p.busy.Store(false)

		ctx, cancel := context.WithTimeout(ctx, p.cfg.TickTimeout)
		defer cancel()
		p.process(ctx, s)
	}()
	return true
}

// process runs one frame through every stage. Failures end the tick; nothing is retried.
func (p *Pipeline) process(ctx context.Context, s *capture.Session) Outcome {
	ctx, span := trace.StartSpan(ctx, "capture_tick")
	defer span.EndAndLog(ctx)
	span.SetAttr("session", s.ID)

	out := p.stages(ctx, s, span)
	span.SetAttr("outcome", out.String())

	switch out {
	case Translated:
		p.translated.Add(1)
	case CaptureFailed, DecodeFailed, ExtractFailed, DetectFailed, TranslateFailed:
		p.failures.Add(1)
	}
	return out
}

func (p *Pipeline) stages(ctx context.Context, s *capture.Session, span *trace.Span) Outcome {
	frame, err := s.Grab(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Cancelled
		}
		span.Fail(err)
		return CaptureFailed
	}

	img := capture.Decode(frame)
	if img == nil {
		span.Fail(fmt.Errorf("malformed frame %dx%d stride %d", frame.Width, frame.Height, frame.RowStride))
		return DecodeFailed
	}
	scaled := capture.Downscale(img, p.cfg.MaxWidth, p.cfg.MaxHeight)

	if p.cfg.SkipSimilarFrames && p.skipper.similar(scaled) {
		return SimilarFrame
	}

	text, err := p.deps.OCR.Extract(ctx, scaled)
	if err != nil {
		span.Fail(err)
		return ExtractFailed
	}
	if ctx.Err() != nil {
		return Cancelled
	}
	if !p.filter.pass(text) {
		return Unchanged
	}
	span.SetAttr("text_len", len(text))

	tag, err := p.deps.Detector.Identify(ctx, text)
	if err != nil {
		span.Fail(err)
		return DetectFailed
	}
	span.SetAttr("language", tag)

	source, ok := lang.Lookup(tag)
	if !ok || source == p.cfg.Target {
		trace.Logger(ctx).Info("no translation needed", "language", tag)
		return NoTranslation
	}
	span.SetAttr("pair", translate.Key(source, p.cfg.Target))

	tr, err := p.deps.Translators.Get(ctx, source, p.cfg.Target)
	if err != nil {
		span.Fail(err)
		return TranslateFailed
	}
	translated, err := tr.Translate(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return Cancelled
		}
		span.Fail(err)
		return TranslateFailed
	}
	if ctx.Err() != nil {
		return Cancelled
	}

	result := translate.Result{
		Original: text,
		Text:     translated,
		Source:   source,
		Target:   p.cfg.Target,
		At:       time.Now(),
	}
	p.publish(ctx, result)
	trace.Logger(ctx).Info("translated", "source", source, "chars", len(text))
	return Translated
}

// publish writes the shared state before signalling so receivers always read the new value.
func (p *Pipeline) publish(ctx context.Context, r translate.Result) {
	p.deps.State.Set(r)
	if p.deps.History != nil {
		p.deps.History.Add(r)
	}
	if p.deps.Notifier != nil {
		if err := p.deps.Notifier.Notify(ctx, notify.SignalUpdateTranslation); err != nil {
			trace.Logger(ctx).Warn("notify failed", "signal", notify.SignalUpdateTranslation, "error", err)
		}
	}
}
