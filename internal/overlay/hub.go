package overlay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"nhooyr.io/websocket"

	"signbridge/internal/logging"
	"signbridge/internal/playback"
	"signbridge/internal/status"
)

// Event names broadcast to clients.
const (
	EventStatus     = "status"
	EventTranscript = "transcript"
	EventPlayback   = "playback"
	EventPreview    = "preview"
	EventDictation  = "dictation"
)

const clientBuffer = 64

// Message is the envelope written to every client.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Command is a control message sent by a client, for example
// {"action":"start"} or {"action":"submit","text":"hello"}.
type Command struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
}

// CommandHandler executes client commands.
type CommandHandler func(ctx context.Context, cmd Command) error

// TranscriptView is the payload of transcript events.
type TranscriptView struct {
	Words []string `json:"words"`
	Text  string   `json:"text"`
}

// Hub fans render events out to websocket clients. New clients first
// receive the latest message of every event kind.
type Hub struct {
	logger   *slog.Logger
	commands CommandHandler
	origins  []string

	mu      sync.RWMutex
	clients map[*client]struct{}

	lastMu sync.RWMutex
	last   map[string][]byte
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Option customizes a Hub.
type Option func(*Hub)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithCommands routes client control messages to handler.
func WithCommands(handler CommandHandler) Option {
	return func(h *Hub) {
		h.commands = handler
	}
}

// WithOriginPatterns allows cross-origin websocket clients matching patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) {
		h.origins = append(h.origins, patterns...)
	}
}

// NewHub builds an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		logger:  logging.NewNop(),
		clients: make(map[*client]struct{}),
		last:    make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logging.NewComponentLogger(h.logger, "overlay")
	return h
}

// Broadcast sends an event to every client. Slow clients drop messages
// rather than block the producer.
func (h *Hub) Broadcast(event string, data any) {
	msg, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		h.logger.Debug("overlay marshal failed", logging.String("event", event), logging.Error(err))
		return
	}

	h.lastMu.Lock()
	h.last[event] = msg
	h.lastMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Last returns the most recent payload for event.
func (h *Hub) Last(event string) ([]byte, bool) {
	h.lastMu.RLock()
	defer h.lastMu.RUnlock()
	msg, ok := h.last[event]
	return msg, ok
}

// ClientCount reports connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StatusSink renders status board changes.
func (h *Hub) StatusSink() status.Sink {
	return func(m status.Message) { h.Broadcast(EventStatus, m) }
}

// TranscriptSink renders the transcript.
func (h *Hub) TranscriptSink() func(words []string) {
	return func(words []string) {
		if words == nil {
			words = []string{}
		}
		h.Broadcast(EventTranscript, TranscriptView{Words: words, Text: strings.Join(words, " ")})
	}
}

// PlaybackSink renders playback progress.
func (h *Hub) PlaybackSink() func(playback.Snapshot) {
	return func(s playback.Snapshot) { h.Broadcast(EventPlayback, s) }
}

// PreviewSink forwards preview frames (JPEG data URIs).
func (h *Hub) PreviewSink() func(dataURI string) {
	return func(frame string) { h.Broadcast(EventPreview, frame) }
}

// DictationSink renders the live dictation buffer.
func (h *Hub) DictationSink() func(text string) {
	return func(text string) { h.Broadcast(EventDictation, text) }
}

// ServeHTTP upgrades the request and serves one client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.logger.Debug("websocket accept failed", logging.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.replay(c)
	h.addClient(c)
	h.logger.Debug("overlay client connected", logging.Int("clients", h.ClientCount()))

	ctx := r.Context()
	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range c.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		h.dispatch(ctx, data)
	}

	h.removeClient(c)
	h.logger.Debug("overlay client disconnected", logging.Int("clients", h.ClientCount()))
}

func (h *Hub) dispatch(ctx context.Context, data []byte) {
	if h.commands == nil {
		return
	}
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil || strings.TrimSpace(cmd.Action) == "" {
		h.logger.Debug("ignoring malformed overlay command")
		return
	}
	cmd.Action = strings.ToLower(strings.TrimSpace(cmd.Action))
	if err := h.commands(ctx, cmd); err != nil {
		h.logger.Debug("overlay command failed",
			logging.String("action", cmd.Action),
			logging.Error(err),
		)
	}
}

func (h *Hub) replay(c *client) {
	h.lastMu.RLock()
	defer h.lastMu.RUnlock()
	for _, event := range []string{EventStatus, EventTranscript, EventPlayback, EventDictation, EventPreview} {
		if msg, ok := h.last[event]; ok {
			select {
			case c.send <- msg:
			default:
			}
		}
	}
}

func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}
