package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/novatech-assistant/internal/learning"
	"github.com/wolfman30/novatech-assistant/pkg/logging"
)

const maxFeedbackBody = 16 << 10

// LearningStore is what the learning endpoints need from *learning.Store.
type LearningStore interface {
	Feedback(ctx context.Context, question string, rating int, comment string) (learning.Interaction, error)
	Recommendations(question string) []learning.Recommendation
	FAQ() []learning.FAQEntry
	Stats() learning.Stats
	Reset(ctx context.Context)
}

// LearningHandler serves feedback and what was learned from it.
type LearningHandler struct {
	store  LearningStore
	logger *logging.Logger
}

func NewLearningHandler(store LearningStore, logger *logging.Logger) *LearningHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &LearningHandler{store: store, logger: logger}
}

type feedbackRequest struct {
	Query    string `json:"query"`
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// Feedback rates the latest answer to a question.
// POST /api/feedback
func (h *LearningHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFeedbackBody)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}
	in, err := h.store.Feedback(r.Context(), req.Query, req.Rating, req.Feedback)
	switch {
	case errors.Is(err, learning.ErrInvalidRating):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, learning.ErrUnknownQuery):
		jsonError(w, "query not found for feedback", http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("failed to record feedback", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "recorded",
		"interaction": in,
	})
}

// Stats reports learning totals.
// GET /api/learning/stats
func (h *LearningHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

// Recommendations lists well rated patterns similar to ?q=.
// GET /api/learning/recommendations
func (h *LearningHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		jsonError(w, "q is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":           q,
		"recommendations": h.store.Recommendations(q),
	})
}

// FAQ lists the FAQ candidates built from rated answers.
// GET /api/learning/faq
func (h *LearningHandler) FAQ(w http.ResponseWriter, r *http.Request) {
	entries := h.store.FAQ()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

// Reset forgets every interaction and pattern.
// POST /api/admin/learning/reset
func (h *LearningHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.store.Reset(r.Context())
	h.logger.Info("learning data reset by admin")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
