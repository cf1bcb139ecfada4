package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
	"github.com/wolfman30/novatech-assistant/pkg/logging"
)

// KnowledgeReader is the read side of the knowledge base.
type KnowledgeReader interface {
	Current() *knowledge.Snapshot
	Stats() knowledge.Stats
}

// KnowledgeHandler serves the knowledge base read-only.
type KnowledgeHandler struct {
	kb     KnowledgeReader
	logger *logging.Logger
}

func NewKnowledgeHandler(kb KnowledgeReader, logger *logging.Logger) *KnowledgeHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &KnowledgeHandler{kb: kb, logger: logger}
}

// List returns the loaded categories and their stats.
// GET /api/knowledge
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": h.kb.Current().Categories(),
		"stats":      h.kb.Stats(),
	})
}

// Category returns one category document as stored.
// GET /api/knowledge/{category}
func (h *KnowledgeHandler) Category(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "category"))
	doc, ok := h.kb.Current().Category(name)
	if !ok {
		jsonError(w, "unknown category", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
