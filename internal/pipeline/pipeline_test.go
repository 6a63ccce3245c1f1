package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/autotranslator/internal/capture"
	"github.com/GriffinCanCode/autotranslator/internal/history"
	"github.com/GriffinCanCode/autotranslator/internal/notify"
	"github.com/GriffinCanCode/autotranslator/internal/syncx"
	"github.com/GriffinCanCode/autotranslator/internal/translate"
)

// makePattern creates test images with distinct patterns for pHash testing.
func makePattern(pattern int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			var c color.RGBA
			switch pattern {
			case 0: // solid gray
				c = color.RGBA{R: 128, G: 128, B: 128, A: 255}
			case 1: // checkerboard
				if (x/8+y/8)%2 == 0 {
					c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
				} else {
					c = color.RGBA{R: 0, G: 0, B: 0, A: 255}
				}
			case 2: // horizontal gradient
				c = color.RGBA{R: uint8(x * 4), G: 0, B: uint8(255 - x*4), A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

type mockSource struct {
	mu     sync.Mutex
	frame  *capture.Frame
	err    error
	grabs  int
	closes atomic.Int32
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Grab(context.Context) (*capture.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grabs++
	return m.frame, m.err
}

func (m *mockSource) Close() error {
	m.closes.Add(1)
	return nil
}

type mockOCR struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	hook  func()
}

func (m *mockOCR) Extract(context.Context, image.Image) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.hook != nil {
		m.hook()
	}
	return m.text, m.err
}

func (m *mockOCR) setText(text string) {
	m.mu.Lock()
	m.text = text
	m.mu.Unlock()
}

func (m *mockOCR) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockDetector struct {
	tags  map[string]string
	err   error
	calls atomic.Int32
}

func (m *mockDetector) Identify(_ context.Context, text string) (string, error) {
	m.calls.Add(1)
	if m.err != nil {
		return "", m.err
	}
	if tag, ok := m.tags[text]; ok {
		return tag, nil
	}
	return "und", nil
}

func (m *mockDetector) Close() error { return nil }

type fixture struct {
	p       *Pipeline
	src     *mockSource
	ocr     *mockOCR
	det     *mockDetector
	factory *translate.StubFactory
	bus     *notify.Broadcaster
	history *history.MemoryStore
	session *capture.Session
}

func newFixture(t *testing.T, text string, tags map[string]string) *fixture {
	t.Helper()
	f := &fixture{
		src:     &mockSource{frame: capture.FromImage(makePattern(1))},
		ocr:     &mockOCR{text: text},
		det:     &mockDetector{tags: tags},
		factory: translate.NewStubFactory(map[string]map[string]string{"es": {"Hola mundo": "Hello world"}}),
		bus:     notify.NewBroadcaster(),
		history: history.NewStore(10),
	}
	f.p = New(Config{Interval: 10 * time.Millisecond}, Deps{
		Open:        func() (capture.Source, error) { return f.src, nil },
		OCR:         f.ocr,
		Detector:    f.det,
		Translators: translate.NewCache(f.factory),
		State:       syncx.NewCell(translate.Result{}),
		History:     f.history,
		Notifier:    f.bus,
	})
	f.session = capture.NewSession(f.src)
	return f
}

func (f *fixture) process() Outcome {
	return f.p.process(context.Background(), f.session)
}

func TestProcessTranslatesSpanish(t *testing.T) {
	f := newFixture(t, "Hola mundo", map[string]string{"Hola mundo": "es"})
	updates, stop := f.bus.Subscribe(notify.SignalUpdateTranslation)
	defer stop()

	if got := f.process(); got != Translated {
		t.Fatalf("process() = %v, want %v", got, Translated)
	}

	if f.factory.Opened("es", "en") != 1 {
		t.Errorf("es->en translators opened = %d, want 1", f.factory.Opened("es", "en"))
	}
	if f.factory.Calls() != 1 {
		t.Errorf("translate calls = %d, want 1", f.factory.Calls())
	}
	if got := f.p.State().Get().Display(); got != "[es → en]\n\nHello world" {
		t.Errorf("state = %q", got)
	}
	if f.bus.Sent(notify.SignalUpdateTranslation) != 1 {
		t.Errorf("notifications = %d, want 1", f.bus.Sent(notify.SignalUpdateTranslation))
	}
	select {
	case <-updates:
	default:
		t.Error("subscriber should be woken")
	}
	if f.history.Len() != 1 {
		t.Errorf("history length = %d, want 1", f.history.Len())
	}
}

func TestProcessSameTextSkipped(t *testing.T) {
	f := newFixture(t, "Hola mundo", map[string]string{"Hola mundo": "es"})

	f.process()
	if got := f.process(); got != Unchanged {
		t.Errorf("second process() = %v, want %v", got, Unchanged)
	}
	if f.ocr.Calls() != 2 {
		t.Errorf("ocr calls = %d, want 2", f.ocr.Calls())
	}
	if f.det.calls.Load() != 1 {
		t.Errorf("detector calls = %d, want 1", f.det.calls.Load())
	}
	if f.bus.Sent(notify.SignalUpdateTranslation) != 1 {
		t.Errorf("notifications = %d, want 1", f.bus.Sent(notify.SignalUpdateTranslation))
	}
}

func TestProcessWhitespaceOnlyDifference(t *testing.T) {
	f := newFixture(t, "Hola mundo", map[string]string{"Hola mundo": "es", "  Hola mundo\n": "es"})

	f.process()
	f.ocr.setText("  Hola mundo\n")
	if got := f.process(); got != Unchanged {
		t.Errorf("process() = %v, want %v (text is compared trimmed)", got, Unchanged)
	}
}

func TestProcessEmptyText(t *testing.T) {
	f := newFixture(t, "   \n", nil)

	if got := f.process(); got != Unchanged {
		t.Errorf("process() = %v, want %v", got, Unchanged)
	}
	if f.det.calls.Load() != 0 {
		t.Error("empty text should not reach the detector")
	}
}

func TestProcessNoTranslation(t *testing.T) {
	tests := []struct {
		name string
		text string
		tag  string
	}{
		{"english", "Hello world", "en"},
		{"undetermined", "12:45", "und"},
		{"unsupported", "Habari dunia", "sw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.text, map[string]string{tt.text: tt.tag})

			if got := f.process(); got != NoTranslation {
				t.Errorf("process() = %v, want %v", got, NoTranslation)
			}
			if n := f.p.deps.Translators.Created(); n != 0 {
				t.Errorf("translators created = %d, want 0", n)
			}
			if !f.p.State().Get().IsZero() {
				t.Error("state should be untouched")
			}
			if f.bus.Sent(notify.SignalUpdateTranslation) != 0 {
				t.Error("no notification expected")
			}
		})
	}
}

func TestProcessReusesTranslator(t *testing.T) {
	f := newFixture(t, "Hola mundo", map[string]string{"Hola mundo": "es", "Buenos días": "es"})

	f.process()
	f.ocr.setText("Buenos días")
	f.process()

	if f.factory.Opened("es", "en") != 1 {
		t.Errorf("es->en translators opened = %d, want 1", f.factory.Opened("es", "en"))
	}
	if f.factory.Calls() != 2 {
		t.Errorf("translate calls = %d, want 2", f.factory.Calls())
	}
	if got := f.p.State().Get().Text; got != "[es] Buenos días" {
		t.Errorf("state text = %q", got)
	}
}

func TestProcessDecodeFailure(t *testing.T) {
	f := newFixture(t, "Hola mundo", nil)
	f.src.frame = &capture.Frame{Width: 10, Height: 10, PixelStride: 4, RowStride: 40, Pix: make([]byte, 12)}

	if got := f.process(); got != DecodeFailed {
		t.Errorf("process() = %v, want %v", got, DecodeFailed)
	}
	if f.ocr.Calls() != 0 {
		t.Error("malformed frame should not reach OCR")
	}
	if f.p.Status().Failures != 1 {
		t.Errorf("failures = %d, want 1", f.p.Status().Failures)
	}
}

func TestProcessCaptureFailure(t *testing.T) {
	f := newFixture(t, "Hola mundo", nil)
	f.src.err = errors.New("device offline")

	if got := f.process(); got != CaptureFailed {
		t.Errorf("process() = %v, want %v", got, CaptureFailed)
	}
}

func TestProcessFailureKeepsHash(t *testing.T) {
	f := newFixture(t, "Hola mundo", map[string]string{"Hola mundo": "es"})
	f.det.err = errors.New("language service down")

	if got := f.process(); got != DetectFailed {
		t.Fatalf("process() = %v, want %v", got, DetectFailed)
	}

	f.det.err = nil
	if got := f.process(); got != Unchanged {
		t.Errorf("retry of same text = %v, want %v", got, Unchanged)
	}
}

func TestProcessOCRFailure(t *testing.T) {
	f := newFixture(t, "", nil)
	f.ocr.err = errors.New("ocr timeout")

	if got := f.process(); got != ExtractFailed {
		t.Errorf("process() = %v, want %v", got, ExtractFailed)
	}
}

func TestProcessCancelledDiscardsResult(t *testing.T) {
	f := newFixture(t, "Hola mundo", map[string]string{"Hola mundo": "es"})
	ctx, cancel := context.WithCancel(context.Background())
	f.ocr.hook = cancel

	if got := f.p.process(ctx, f.session); got != Cancelled {
		t.Errorf("process() = %v, want %v", got, Cancelled)
	}
	if !f.p.State().Get().IsZero() {
		t.Error("results after cancellation must be discarded")
	}
}

func TestSimilarFrameSkipsOCR(t *testing.T) {
	f := newFixture(t, "Hola mundo", map[string]string{"Hola mundo": "es"})
	f.p.cfg.SkipSimilarFrames = true

	f.process()
	if got := f.process(); got != SimilarFrame {
		t.Errorf("identical frame = %v, want %v", got, SimilarFrame)
	}
	if f.ocr.Calls() != 1 {
		t.Errorf("ocr calls = %d, want 1", f.ocr.Calls())
	}

	f.src.frame = capture.FromImage(makePattern(2))
	if got := f.process(); got == SimilarFrame {
		t.Error("visually distinct frame should not be skipped")
	}
}

func TestFrameSkipperFirstFrame(t *testing.T) {
	var s frameSkipper
	if s.similar(makePattern(0)) {
		t.Error("first frame should not skip OCR")
	}
	if s.lastHash == nil {
		t.Error("lastHash should be set after first frame")
	}
}

// makeTextScreen draws ten rows of glyph-like blocks on white. Glyphs in row
// rewriteRow use a different pattern, like a subtitle line replaced in place.
func makeTextScreen(rewriteRow int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 320, 200))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	ink := color.RGBA{A: 255}
	for row := 0; row < 10; row++ {
		for col := 0; col < 30; col++ {
			bits := (row*31 + col*17) % 13
			if row == rewriteRow {
				bits = (bits*7 + 5) % 13
			}
			for y := 0; y < 12; y++ {
				for x := 0; x < 8; x++ {
					if (bits>>((x+y)%4))&1 == 1 {
						img.Set(10+col*10+x, 4+row*20+y, ink)
					}
				}
			}
		}
	}
	return img
}

func TestRewrittenLineStillExtracted(t *testing.T) {
	f := newFixture(t, "Hola mundo", map[string]string{"Hola mundo": "es", "Buenos dias": "es"})
	f.p.cfg.SkipSimilarFrames = true
	f.src.frame = capture.FromImage(makeTextScreen(-1))

	if got := f.process(); got != Translated {
		t.Fatalf("first frame = %v, want %v", got, Translated)
	}

	f.src.frame = capture.FromImage(makeTextScreen(4))
	f.ocr.setText("Buenos dias")
	if got := f.process(); got != Translated {
		t.Errorf("rewritten line = %v, want %v", got, Translated)
	}
	if f.ocr.Calls() != 2 {
		t.Errorf("ocr calls = %d, want 2", f.ocr.Calls())
	}
	if got := f.p.State().Get().Original; got != "Buenos dias" {
		t.Errorf("state original = %q, want the rewritten line", got)
	}
}

func TestFrameSkipperComparesWithPreviousFrame(t *testing.T) {
	var s frameSkipper
	a, b := makeTextScreen(-1), makeTextScreen(-1)
	b.Set(100, 100, color.RGBA{R: 255, A: 255})

	if s.similar(a) {
		t.Fatal("first frame should not skip")
	}
	if s.similar(b) {
		t.Fatal("a single changed pixel should not skip")
	}
	if !s.similar(b) {
		t.Error("a repeat of the previous frame should skip")
	}
	if s.similar(a) {
		t.Error("returning to an older frame should not skip")
	}

	s.reset()
	if s.similar(a) {
		t.Error("first frame after reset should not skip")
	}
}

func TestChangeFilter(t *testing.T) {
	var f changeFilter
	steps := []struct {
		text string
		want bool
	}{
		{"", false},
		{"Hola", true},
		{"Hola", false},
		{" Hola ", false},
		{"Adiós", true},
		{"Hola", true},
	}
	for i, s := range steps {
		if got := f.pass(s.text); got != s.want {
			t.Errorf("step %d: pass(%q) = %v, want %v", i, s.text, got, s.want)
		}
	}
	f.reset()
	if !f.pass("Hola") {
		t.Error("pass after reset should accept the last text again")
	}
}

func TestTickDropsWhenBusy(t *testing.T) {
	f := newFixture(t, "Hola mundo", map[string]string{"Hola mundo": "es"})
	f.p.busy.Store(true)

	if f.p.tick(context.Background(), f.session) {
		t.Error("tick should not start while a frame is in flight")
	}
	f.p.inflight.Wait()

	if f.src.grabs != 0 || f.ocr.Calls() != 0 {
		t.Error("dropped tick must not capture or extract")
	}
	st := f.p.Status()
	if st.Ticks != 1 || st.Dropped != 1 {
		t.Errorf("ticks = %d, dropped = %d, want 1, 1", st.Ticks, st.Dropped)
	}
}

func TestTickClearsGuard(t *testing.T) {
	f := newFixture(t, "", nil)
	f.ocr.err = errors.New("fail")

	if !f.p.tick(context.Background(), f.session) {
		t.Fatal("tick should start when idle")
	}
	f.p.inflight.Wait()

	if f.p.busy.Load() {
		t.Error("guard should be cleared after a failed tick")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, "Hola mundo", map[string]string{"Hola mundo": "es"})
	ctx := context.Background()

	if err := f.p.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() before Start = %v, want ErrNotRunning", err)
	}

	if err := f.p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	first := f.p.Status().SessionID
	if err := f.p.Start(ctx); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if f.p.Status().SessionID != first {
		t.Error("Start on a running pipeline should keep the session")
	}

	waitFor(t, func() bool { return f.bus.Sent(notify.SignalUpdateTranslation) >= 1 })

	if err := f.p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if f.p.Running() {
		t.Error("Running() after Stop = true")
	}
	if f.src.closes.Load() != 1 {
		t.Errorf("source closes = %d, want 1", f.src.closes.Load())
	}
	if f.factory.Closed() != 1 {
		t.Errorf("translators closed = %d, want 1", f.factory.Closed())
	}

	// Restart opens a fresh session and forgets the last text.
	if err := f.p.Start(ctx); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	defer f.p.Stop()
	if id := f.p.Status().SessionID; id == "" || id == first {
		t.Errorf("restart session id = %q, want new id", id)
	}
	waitFor(t, func() bool { return f.bus.Sent(notify.SignalUpdateTranslation) >= 2 })
}

func TestStatusReadableDuringStop(t *testing.T) {
	f := newFixture(t, "Hola mundo", map[string]string{"Hola mundo": "es"})
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.ocr.hook = func() {
		once.Do(func() { close(entered) })
		<-release
	}

	if err := f.p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("tick never reached OCR")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- f.p.Stop() }()

	// Stop is parked on the blocked tick; Status and Running must still answer.
	waitFor(t, func() bool { return f.p.Status().Stopping })
	if f.p.Running() {
		t.Error("Running() while stopping = true")
	}
	if st := f.p.Status(); st.Running || st.SessionID == "" {
		t.Errorf("status while stopping = %+v", st)
	}
	select {
	case err := <-stopped:
		t.Fatalf("Stop returned %v before the tick finished", err)
	default:
	}

	close(release)
	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the tick finished")
	}
	if st := f.p.Status(); st.Running || st.Stopping {
		t.Errorf("status after Stop = %+v", st)
	}
}

func TestStartOpenError(t *testing.T) {
	boom := errors.New("no display")
	p := New(Config{}, Deps{Open: func() (capture.Source, error) { return nil, boom }})

	if err := p.Start(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Start() error = %v, want %v", err, boom)
	}
	if p.Running() {
		t.Error("failed Start should leave the pipeline stopped")
	}
}

func TestNewDefaults(t *testing.T) {
	p := New(Config{}, Deps{})
	if p.cfg.Interval != DefaultInterval || p.cfg.Target != "en" {
		t.Errorf("defaults = %+v", p.cfg)
	}
	if p.State() == nil {
		t.Error("State() should be created when not supplied")
	}
}

func TestOutcomeString(t *testing.T) {
	if Translated.String() != "translated" || Cancelled.String() != "cancelled" {
		t.Errorf("unexpected outcome names %q, %q", Translated, Cancelled)
	}
}
