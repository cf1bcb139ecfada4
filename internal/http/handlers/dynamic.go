package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/novatech-assistant/internal/dynamic"
	"github.com/wolfman30/novatech-assistant/internal/knowledge"
	"github.com/wolfman30/novatech-assistant/pkg/logging"
)

// DynamicSource serves and refreshes the externally sourced categories.
type DynamicSource interface {
	Latest(ctx context.Context, category string) (knowledge.Value, error)
	Refresh(ctx context.Context, kinds ...string) (dynamic.Report, error)
}

// DynamicHandler exposes news, market, trends and social data.
type DynamicHandler struct {
	source DynamicSource
	logger *logging.Logger
}

func NewDynamicHandler(source DynamicSource, logger *logging.Logger) *DynamicHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamicHandler{source: source, logger: logger}
}

// Latest returns the freshest copy of a dynamic category.
// GET /api/dynamic/{category}
func (h *DynamicHandler) Latest(w http.ResponseWriter, r *http.Request) {
	category, ok := dynamic.ResolveCategory(chi.URLParam(r, "category"))
	if !ok {
		jsonError(w, "unknown dynamic category", http.StatusNotFound)
		return
	}
	v, err := h.source.Latest(r.Context(), category)
	if errors.Is(err, dynamic.ErrNoData) {
		jsonError(w, "no data available for "+category, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to read dynamic data", "category", category, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"data":     v,
	})
}
