package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jetwayhq/jetway/pkg/adapters/image"
	"github.com/jetwayhq/jetway/pkg/adapters/speech"
	"github.com/jetwayhq/jetway/pkg/chat"
	"github.com/jetwayhq/jetway/pkg/errorsx"
	"github.com/jetwayhq/jetway/pkg/logging"
	"github.com/jetwayhq/jetway/pkg/metrics"
	"github.com/jetwayhq/jetway/pkg/turn"
)

type Config struct {
	ServerAddr     string   `mapstructure:"server_addr"`
	WebsocketPath  string   `mapstructure:"ws_path"`
	PagePath       string   `mapstructure:"page_path"`
	AllowAnyOrigin bool     `mapstructure:"allow_any_origin"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (c Config) withDefaults() Config {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8080"
	}
	if c.WebsocketPath == "" {
		c.WebsocketPath = "/ws"
	}
	if c.PagePath == "" {
		c.PagePath = "/"
	}
	if !c.AllowAnyOrigin && len(c.AllowedOrigins) == 0 {
		c.AllowAnyOrigin = true
	}
	return c
}

// TurnRunner runs one user turn against the conversation stack.
type TurnRunner interface {
	HandleUserTurn(ctx context.Context, transcript []chat.Turn, userText string) ([]chat.Turn, turn.Outcome, error)
}

// Deps carries everything a session needs. Image and Speech are optional;
// when absent the gateway simply sends text replies.
type Deps struct {
	Runner       TurnRunner
	SystemPrompt string
	Image        image.Generator
	Speech       speech.Synthesizer
	Observer     metrics.Observer
}

// Gateway serves a browser chat page and a websocket endpoint. Each
// connection owns one transcript; user messages run through the turn runner
// one at a time, and artifacts follow the reply on the same socket.
type Gateway struct {
	cfg      Config
	deps     Deps
	log      *slog.Logger
	server   *http.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session

	draining atomic.Bool
}

func New(cfg Config, deps Deps) (*Gateway, error) {
	if deps.Runner == nil {
		return nil, errors.New("ws gateway requires a turn runner")
	}
	if deps.Observer == nil {
		deps.Observer = metrics.NoopObserver{}
	}
	cfg = cfg.withDefaults()
	g := &Gateway{
		cfg:  cfg,
		deps: deps,
		log:  logging.NewComponentLogger(slog.Default(), "ws_gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		sessions: make(map[string]*session),
	}
	g.upgrader.CheckOrigin = g.checkOrigin
	return g, nil
}

func (g *Gateway) Name() string { return "ws" }

func (g *Gateway) ReadyFields() map[string]any {
	return map[string]any{
		"listen_addr": g.cfg.ServerAddr,
		"ws_path":     g.cfg.WebsocketPath,
		"page_path":   g.cfg.PagePath,
	}
}

func (g *Gateway) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc(g.cfg.PagePath, g.handlePage)
	mux.Handle(g.cfg.WebsocketPath, g)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	g.server = &http.Server{
		Addr:              g.cfg.ServerAddr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	go func() {
		<-ctx.Done()
		_ = g.server.Close()
	}()
	go func() {
		if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.Error("server_error", "error", err.Error())
		}
	}()
	return nil
}

func (g *Gateway) Stop() error {
	g.draining.Store(true)
	if g.server != nil {
		_ = g.server.Close()
	}
	g.mu.Lock()
	for _, sess := range g.sessions {
		_ = sess.close()
	}
	g.sessions = make(map[string]*session)
	g.mu.Unlock()
	return nil
}

// WaitForEmpty blocks until no session has a turn in flight.
func (g *Gateway) WaitForEmpty(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if !g.anyBusy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (g *Gateway) anyBusy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, sess := range g.sessions {
		if sess.busy.Load() {
			return true
		}
	}
	return false
}

func (g *Gateway) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != g.cfg.PagePath {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if g.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sess := &session{
		id:         uuid.NewString(),
		conn:       conn,
		sendCh:     make(chan []byte, 256),
		transcript: chat.NewTranscript(g.deps.SystemPrompt),
	}
	g.attach(sess)
	defer g.detach(sess.id)
	go sess.loop()

	g.log.Info("session_started", slog.String("session_id", sess.id))

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var evt clientEvent
		if err := json.Unmarshal(msg, &evt); err != nil {
			sess.enqueue(serverEvent{Type: "error", Message: "invalid message"})
			continue
		}
		switch evt.Type {
		case "user":
			text := strings.TrimSpace(evt.Text)
			if text == "" {
				continue
			}
			if !sess.busy.CompareAndSwap(false, true) {
				sess.enqueue(serverEvent{Type: "error", Message: "a turn is already in flight"})
				continue
			}
			go func() {
				defer sess.busy.Store(false)
				g.runTurn(r.Context(), sess, text)
			}()
		case "clear":
			if !sess.busy.CompareAndSwap(false, true) {
				sess.enqueue(serverEvent{Type: "error", Message: "a turn is already in flight"})
				continue
			}
			sess.transcript.Clear()
			sess.busy.Store(false)
			sess.enqueue(serverEvent{Type: "cleared"})
		default:
			sess.enqueue(serverEvent{Type: "error", Message: "unknown message type"})
		}
	}

	g.log.Info("session_closed", slog.String("session_id", sess.id))
}

// runTurn executes one user turn and ships the reply plus any artifacts.
// The transcript only adopts the new turns after the runner succeeds.
func (g *Gateway) runTurn(ctx context.Context, sess *session, text string) {
	snapshot := sess.transcript.Snapshot()
	updated, outcome, err := g.deps.Runner.HandleUserTurn(ctx, snapshot, text)
	if err != nil {
		g.log.Error("turn_failed",
			slog.String("session_id", sess.id),
			slog.String("reason_code", string(errorsx.Reason(err))),
			slog.String("error", err.Error()),
		)
		sess.enqueue(serverEvent{Type: "error", Message: "the assistant is unavailable right now, please try again"})
		return
	}
	if err := sess.transcript.Append(updated[len(snapshot):]...); err != nil {
		g.log.Error("transcript_append_failed",
			slog.String("session_id", sess.id),
			slog.String("error", err.Error()))
	}
	sess.enqueue(serverEvent{Type: "reply", Text: outcome.Reply})

	if outcome.ArtifactCue != "" && g.deps.Image != nil {
		g.sendImage(ctx, sess, outcome.ArtifactCue)
	}
	if outcome.Reply != "" && g.deps.Speech != nil {
		g.sendAudio(ctx, sess, outcome.Reply)
	}
}

func (g *Gateway) sendImage(ctx context.Context, sess *session, cue string) {
	started := time.Now()
	img, err := g.deps.Image.Generate(ctx, cue)
	if err != nil {
		g.log.Error("image_failed",
			slog.String("session_id", sess.id),
			slog.String("reason_code", string(errorsx.ReasonImageGenerate)),
			slog.String("error", err.Error()),
		)
		return
	}
	sess.enqueue(serverEvent{
		Type: "image",
		MIME: img.MIME,
		Data: base64.StdEncoding.EncodeToString(img.Bytes),
	})
	g.deps.Observer.RecordEvent(metrics.NewEvent(
		metrics.EventImageGenerated,
		time.Since(started).Seconds(),
		map[string]string{"session_id": sess.id, "provider": g.deps.Image.Name()},
		map[string]any{"cue": cue, "bytes": len(img.Bytes)},
	))
}

func (g *Gateway) sendAudio(ctx context.Context, sess *session, text string) {
	started := time.Now()
	clip, err := g.deps.Speech.Synthesize(ctx, text)
	if err != nil {
		g.log.Error("speech_failed",
			slog.String("session_id", sess.id),
			slog.String("reason_code", string(errorsx.ReasonSpeechSynthesize)),
			slog.String("error", err.Error()),
		)
		return
	}
	sess.enqueue(serverEvent{
		Type: "audio",
		MIME: clip.MIME,
		Data: base64.StdEncoding.EncodeToString(clip.Bytes),
	})
	g.deps.Observer.RecordEvent(metrics.NewEvent(
		metrics.EventSpeechGenerated,
		time.Since(started).Seconds(),
		map[string]string{"session_id": sess.id, "provider": g.deps.Speech.Name()},
		map[string]any{"chars": len(text), "bytes": len(clip.Bytes)},
	))
}

func (g *Gateway) attach(sess *session) {
	g.mu.Lock()
	g.sessions[sess.id] = sess
	g.mu.Unlock()
}

func (g *Gateway) detach(id string) {
	g.mu.Lock()
	sess := g.sessions[id]
	delete(g.sessions, id)
	g.mu.Unlock()
	if sess != nil {
		_ = sess.close()
	}
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	if g.cfg.AllowAnyOrigin {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	origin = strings.TrimRight(origin, "/")
	originHost := strings.TrimPrefix(origin, "https://")
	originHost = strings.TrimPrefix(originHost, "http://")
	for _, allowed := range g.cfg.AllowedOrigins {
		a := strings.TrimSpace(allowed)
		if a == "" {
			continue
		}
		a = strings.TrimRight(a, "/")
		if strings.HasPrefix(a, "http://") || strings.HasPrefix(a, "https://") {
			if strings.EqualFold(a, origin) {
				return true
			}
			continue
		}
		if strings.EqualFold(a, originHost) {
			return true
		}
	}
	return false
}

type clientEvent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type serverEvent struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	MIME    string `json:"mime,omitempty"`
	Data    string `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type session struct {
	id         string
	conn       *websocket.Conn
	sendCh     chan []byte
	transcript *chat.Transcript
	busy       atomic.Bool

	mu     sync.RWMutex
	closed bool
}

// enqueue drops the event when the session is closed or its buffer is full.
// The read lock keeps close from closing the channel mid-send; a turn can
// still be in flight when the client disconnects.
func (s *session) enqueue(evt serverEvent) {
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.sendCh <- b:
	default:
	}
}

func (s *session) loop() {
	for msg := range s.sendCh {
		_ = s.conn.WriteMessage(websocket.TextMessage, msg)
	}
}

func (s *session) close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.sendCh)
	}
	s.mu.Unlock()
	return s.conn.Close()
}
