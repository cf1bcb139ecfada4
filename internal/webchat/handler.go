package webchat

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wolfman30/novatech-assistant/internal/conversation"
	"github.com/wolfman30/novatech-assistant/internal/session"
	"github.com/wolfman30/novatech-assistant/pkg/logging"
)

//go:embed widget.js
var widgetJS []byte

const (
	maxFrameBytes = 16 << 10
	writeTimeout  = 10 * time.Second
	historyLimit  = 50
)

// Replier answers one chat message.
type Replier interface {
	Reply(ctx context.Context, req conversation.ChatRequest) (conversation.ChatResponse, error)
}

// SessionReader looks up live sessions for history replay.
type SessionReader interface {
	Get(id string) (*session.Session, bool)
}

// Handler manages web chat connections and messages.
type Handler struct {
	replier  Replier
	sessions SessionReader
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*wsConn // session ID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *wsConn) send(msg OutboundMessage) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(msg)
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	Content   string `json:"content"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type        string           `json:"type"` // "session", "history", "typing", "response", "error", "pong", "update"
	Content     string           `json:"content,omitempty"`
	SessionID   string           `json:"session_id,omitempty"`
	Intent      string           `json:"intent,omitempty"`
	Source      string           `json:"source,omitempty"`
	Suggestions []string         `json:"suggestions,omitempty"`
	Timestamp   string           `json:"timestamp,omitempty"`
	Messages    []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler. allowedOrigins follows the CORS
// setting; "*" or an empty list accepts any origin.
func NewHandler(replier Replier, sessions SessionReader, allowedOrigins []string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		replier:  replier,
		sessions: sessions,
		logger:   logger,
		conns:    make(map[string]*wsConn),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimSpace(o); o != "" {
			set[o] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set["*"] || set[origin]
	}
}

// Connections reports the number of open sockets.
func (h *Handler) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
// GET /ws?session=<id>
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("webchat: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	wsc := &wsConn{conn: conn}
	_ = wsc.send(OutboundMessage{Type: "session", SessionID: sessionID})
	if history := h.history(sessionID); len(history) > 0 {
		_ = wsc.send(OutboundMessage{Type: "history", SessionID: sessionID, Messages: history})
	}

	h.register(sessionID, wsc)
	defer h.unregister(sessionID, wsc)
	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				_ = wsc.send(OutboundMessage{Type: "error", Content: "invalid message format", SessionID: sessionID})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("webchat: read failed", "session_id", sessionID, "error", err)
			}
			h.logger.Debug("webchat: connection closed", "session_id", sessionID)
			return
		}

		switch msg.Type {
		case "ping":
			_ = wsc.send(OutboundMessage{Type: "pong"})
		case "message":
			if msg.SessionID != "" && msg.SessionID != sessionID {
				h.unregister(sessionID, wsc)
				sessionID = msg.SessionID
				h.register(sessionID, wsc)
			}
			h.processMessage(r.Context(), wsc, sessionID, msg)
		default:
			_ = wsc.send(OutboundMessage{Type: "error", Content: "unsupported message type", SessionID: sessionID})
		}
	}
}

func (h *Handler) processMessage(ctx context.Context, wsc *wsConn, sessionID string, msg InboundMessage) {
	if strings.TrimSpace(msg.Content) == "" {
		_ = wsc.send(OutboundMessage{Type: "error", Content: "message is required", SessionID: sessionID})
		return
	}
	_ = wsc.send(OutboundMessage{Type: "typing", SessionID: sessionID})

	resp, err := h.replier.Reply(ctx, conversation.ChatRequest{
		Message:   msg.Content,
		SessionID: sessionID,
		UserID:    msg.UserID,
	})
	if err != nil {
		h.logger.Error("webchat: failed to answer message", "session_id", sessionID, "error", err)
		_ = wsc.send(OutboundMessage{
			Type:      "error",
			Content:   "Sorry, something went wrong. Please try again.",
			SessionID: sessionID,
		})
		return
	}

	_ = wsc.send(OutboundMessage{
		Type:        "response",
		Content:     resp.Response,
		SessionID:   resp.SessionID,
		Intent:      resp.Intent,
		Source:      string(resp.Source),
		Suggestions: resp.Suggestions,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) register(sessionID string, wsc *wsConn) {
	h.mu.Lock()
	h.conns[sessionID] = wsc
	h.mu.Unlock()
}

func (h *Handler) unregister(sessionID string, wsc *wsConn) {
	h.mu.Lock()
	if h.conns[sessionID] == wsc {
		delete(h.conns, sessionID)
	}
	h.mu.Unlock()
}

// SendToSession pushes a message to an open socket for the session. It
// reports whether one was connected.
func (h *Handler) SendToSession(sessionID string, msg OutboundMessage) bool {
	h.mu.RLock()
	wsc, ok := h.conns[sessionID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return wsc.send(msg) == nil
}

// Broadcast pushes msg to every open socket and returns how many took it.
func (h *Handler) Broadcast(msg OutboundMessage) int {
	h.mu.RLock()
	ids := make([]string, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	sent := 0
	for _, id := range ids {
		m := msg
		m.SessionID = id
		if h.SendToSession(id, m) {
			sent++
		}
	}
	return sent
}

// NotifyUpdated tells every open socket which knowledge categories were just
// refreshed.
func (h *Handler) NotifyUpdated(categories []string) {
	if len(categories) == 0 {
		return
	}
	n := h.Broadcast(OutboundMessage{
		Type:      "update",
		Content:   "Fresh data is available for: " + strings.Join(categories, ", "),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	h.logger.Debug("refresh notification sent", "categories", categories, "sockets", n)
}

func (h *Handler) history(sessionID string) []HistoryMessage {
	if h.sessions == nil {
		return nil
	}
	sess, ok := h.sessions.Get(sessionID)
	if !ok {
		return nil
	}
	msgs := sess.History()
	if len(msgs) > historyLimit {
		msgs = msgs[len(msgs)-historyLimit:]
	}
	out := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryMessage{
			Role:      string(m.Role),
			Text:      m.Text,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// HandleHistory returns chat history for a session.
// GET /chat/history?session=<id>
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	history := h.history(sessionID)
	if history == nil {
		history = []HistoryMessage{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"session_id": sessionID, "messages": history})
}

// HandleWidgetJS serves the embeddable widget JavaScript.
// GET /chat/widget.js
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(widgetJS)
}
