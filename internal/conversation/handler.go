package conversation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/novatech-assistant/internal/session"
	"github.com/wolfman30/novatech-assistant/pkg/logging"
)

const maxChatBody = 64 << 10

// Handler wires HTTP requests to the conversation service.
type Handler struct {
	service        *Service
	recentMessages int
	logger         *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(service *Service, recentMessages int, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if recentMessages <= 0 {
		recentMessages = 5
	}
	return &Handler{
		service:        service,
		recentMessages: recentMessages,
		logger:         logger,
	}
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode chat request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	resp, err := h.service.Reply(r.Context(), req)
	if errors.Is(err, ErrEmptyMessage) {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	if err != nil {
		h.logger.Error("failed to process chat message", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process message"})
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type conversationView struct {
	session.Stats
	RecentContext string            `json:"recent_context"`
	History       []session.Message `json:"history"`
}

// Conversation handles GET /api/conversation/{sessionID}.
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess, ok := h.service.Sessions().Get(id)
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": session.ErrNotFound.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, conversationView{
		Stats:         sess.Stats(),
		RecentContext: sess.RecentContext(h.recentMessages),
		History:       sess.History(),
	})
}

// DeleteConversation handles DELETE /api/conversation/{sessionID}.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !h.service.Sessions().Delete(id) {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": session.ErrNotFound.Error()})
		return
	}
	h.logger.Info("conversation cleared", "session_id", id)
	h.writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "cleared": true})
}

// Conversations handles GET /api/conversations.
func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Sessions().Summary())
}

// ResetConversations handles POST /api/admin/conversations/reset. It drops
// every session, live or expired.
func (h *Handler) ResetConversations(w http.ResponseWriter, r *http.Request) {
	n := h.service.Sessions().Clear()
	h.logger.Info("all conversations reset", "cleared", n)
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "reset", "cleared": n})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
