package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/novatech-assistant/internal/dynamic"
	"github.com/wolfman30/novatech-assistant/internal/knowledge"
	"github.com/wolfman30/novatech-assistant/pkg/logging"
)

const maxKnowledgeBody = 4 << 20

// KnowledgeAdmin is the write side of the knowledge base.
type KnowledgeAdmin interface {
	Reload() (*knowledge.Snapshot, error)
	Validate() []knowledge.ValidationResult
	WriteCategory(name string, doc knowledge.Value) error
}

// ContextCache is the assembled-context cache.
type ContextCache interface {
	ClearCache()
	CacheStats() knowledge.CacheStats
}

// AdminHandler serves the operator endpoints. Mount it behind AdminAuth.
type AdminHandler struct {
	kb      KnowledgeAdmin
	cache   ContextCache
	dynamic DynamicSource
	logger  *logging.Logger
}

// NewAdminHandler wires the admin endpoints. dynamicSource may be nil when no
// fetchers are configured.
func NewAdminHandler(kb KnowledgeAdmin, cache ContextCache, dynamicSource DynamicSource, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{kb: kb, cache: cache, dynamic: dynamicSource, logger: logger}
}

// Refresh runs the dynamic refresher for {type}: news, market, social or all.
// POST /api/admin/refresh
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.dynamic == nil {
		jsonError(w, "dynamic data disabled", http.StatusServiceUnavailable)
		return
	}
	var body struct {
		Type string `json:"type"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			jsonError(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}
	kind := strings.TrimSpace(body.Type)
	if kind == "" {
		kind = dynamic.KindAll
	}

	report, err := h.dynamic.Refresh(r.Context(), kind)
	if errors.Is(err, dynamic.ErrUnknownKind) || errors.Is(err, dynamic.ErrNotConfigured) {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	status := "ok"
	if err != nil {
		status = "partial"
		h.logger.Warn("admin refresh incomplete", "type", kind, "error", err)
	}
	h.logger.Info("admin refresh", "type", kind, "updated", report.Updated)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"type":   kind,
		"report": report,
	})
}

// Reload rereads the knowledge directory.
// POST /api/admin/reload
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.kb.Reload()
	if err != nil {
		h.logger.Error("knowledge reload failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.cache.ClearCache()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "reloaded",
		"version":    snap.Version,
		"categories": snap.Categories(),
	})
}

// Validate reports on every category file.
// GET /api/admin/validate
func (h *AdminHandler) Validate(w http.ResponseWriter, r *http.Request) {
	results := h.kb.Validate()
	valid := true
	for _, res := range results {
		valid = valid && res.OK()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":   valid,
		"results": results,
	})
}

// PutCategory replaces one category document.
// PUT /api/admin/knowledge/{category}
func (h *AdminHandler) PutCategory(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "category"))
	var doc knowledge.Value
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxKnowledgeBody)).Decode(&doc); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if doc.IsNull() {
		jsonError(w, "document must not be null", http.StatusBadRequest)
		return
	}
	err := h.kb.WriteCategory(name, doc)
	if errors.Is(err, knowledge.ErrUnknownCategory) {
		jsonError(w, "unknown category", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to write knowledge category", "category", name, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("knowledge category replaced", "category", name)
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated", "category": name})
}

// ClearCache drops the assembled-context cache.
// POST /api/admin/cache/clear
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	before := h.cache.CacheStats()
	h.cache.ClearCache()
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared", "before": before})
}
