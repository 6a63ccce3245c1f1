// Package overlay serves the translation overlay: a WebSocket push channel that
// re-reads shared state on every update signal, plus a small HTTP control API.
package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/GriffinCanCode/autotranslator/internal/history"
	"github.com/GriffinCanCode/autotranslator/internal/notify"
	"github.com/GriffinCanCode/autotranslator/internal/pipeline"
	"github.com/GriffinCanCode/autotranslator/internal/syncx"
	"github.com/GriffinCanCode/autotranslator/internal/trace"
	"github.com/GriffinCanCode/autotranslator/internal/translate"
)

// Controller starts and stops capture.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Status() pipeline.Status
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

type client struct {
	id string
	rl *rateLimiter
}

// Option customizes a Server.
type Option func(*Server)

// WithStatus adds a named section to GET /api/status.
func WithStatus(name string, fn func() any) Option {
	return func(s *Server) { s.extra[name] = fn }
}

// WithPosition sets the initial overlay position.
func WithPosition(p Position) Option {
	return func(s *Server) { s.position.Set(p) }
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	ctrl     Controller
	state    *syncx.Cell[translate.Result]
	history  history.Store
	bus      *notify.Broadcaster
	position *syncx.Cell[Position]
	extra    map[string]func() any

	mu    sync.RWMutex
	conns map[*websocket.Conn]*client
}

// New creates a new server.
func New(ctrl Controller, state *syncx.Cell[translate.Result], hist history.Store, bus *notify.Broadcaster, opts ...Option) *Server {
	s := &Server{
		ctrl:     ctrl,
		state:    state,
		history:  hist,
		bus:      bus,
		position: syncx.NewCell(Position{X: InitialX, Y: InitialY}),
		extra:    make(map[string]func() any),
		conns:    make(map[*websocket.Conn]*client),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Position returns the current overlay position.
func (s *Server) Position() Position { return s.position.Get() }

// Clients returns the number of connected overlays.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Run pushes state to every client whenever a translation lands or the overlay moves.
// Wakeups coalesce, so clients always get the latest value, never a backlog.
func (s *Server) Run(ctx context.Context) {
	updates, stopUpdates := s.bus.Subscribe(notify.SignalUpdateTranslation)
	defer stopUpdates()
	moves, stopMoves := s.position.Watch()
	defer stopMoves()

	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			s.broadcast(translationMessage(s.state.Get()))
		case <-moves:
			s.broadcast(positionMessage(s.position.Get()))
		}
	}
}

func (s *Server) broadcast(msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.conns {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
			defer cancel()
			_ = wsjson.Write(ctx, c, msg)
		}(conn)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware, trace.Middleware)

	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/translation", s.handleTranslation)
		r.Get("/history", s.handleHistory)
		r.Get("/overlay/position", s.handleGetPosition)
		r.Put("/overlay/position", s.handlePutPosition)
		r.Post("/capture/start", s.handleCaptureStart)
		r.Post("/capture/stop", s.handleCaptureStop)
		r.Get("/status", s.handleStatus)
	})
	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	log := trace.Logger(r.Context())
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	c := &client{id: uuid.NewString(), rl: &rateLimiter{}}
	s.mu.Lock()
	s.conns[conn] = c
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	ctx := r.Context()
	log = log.With("client", c.id)
	log.Info("overlay connected", "remote", r.RemoteAddr)

	// New clients render the current state immediately.
	if res := s.state.Get(); !res.IsZero() {
		_ = wsjson.Write(ctx, conn, translationMessage(res))
	}
	_ = wsjson.Write(ctx, conn, positionMessage(s.position.Get()))

	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !c.rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		var base Message
		if err := json.Unmarshal(raw, &base); err != nil {
			continue
		}
		msgCtx := ctx
		if tc, ok := trace.ExtractFromJSON(raw); ok {
			msgCtx = trace.WithContext(ctx, tc)
		}

		switch base.Type {
		case "move", "drag":
			var mv MoveMessage
			if err := json.Unmarshal(raw, &mv); err != nil {
				continue
			}
			s.move(msgCtx, mv)
		default:
			_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: "unknown message type " + strconv.Quote(base.Type)})
		}
	}
}

func (s *Server) move(ctx context.Context, mv MoveMessage) {
	if mv.Type == "drag" {
		s.position.Update(func(p *Position) {
			p.X += mv.DX
			p.Y += mv.DY
		})
	} else {
		s.position.Set(Position{X: mv.X, Y: mv.Y})
	}
	trace.Logger(ctx).Debug("overlay moved", "position", s.position.Get())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleTranslation(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, translationMessage(s.state.Get()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	var since time.Duration
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be a positive duration such as 5m"})
			return
		}
		since = d
	}

	entries := []translate.Result{}
	switch {
	case s.history == nil:
	case since > 0:
		entries = append(entries, s.history.Since(since)...)
		if limit > 0 && len(entries) > limit {
			entries = entries[len(entries)-limit:]
		}
	default:
		entries = s.history.Recent(limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleGetPosition(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.position.Get())
}

func (s *Server) handlePutPosition(w http.ResponseWriter, r *http.Request) {
	var p Position
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	s.position.Set(p)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCaptureStart(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Start(r.Context()); err != nil {
		trace.Logger(r.Context()).Error("capture start failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

func (s *Server) handleCaptureStop(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Stop(); err != nil {
		if errors.Is(err, pipeline.ErrNotRunning) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		trace.Logger(r.Context()).Warn("capture stop reported errors", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"capture":  s.ctrl.Status(),
		"clients":  s.Clients(),
		"position": s.position.Get(),
	}
	for name, fn := range s.extra {
		body[name] = fn()
	}
	writeJSON(w, http.StatusOK, body)
}
