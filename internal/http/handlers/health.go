package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
)

// Pinger checks a backing service, such as Redis.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// SessionCounter reports live sessions.
type SessionCounter interface {
	Len() int
}

// HealthHandler reports liveness and what the service is running with.
type HealthHandler struct {
	version  string
	provider string
	kb       interface{ Stats() knowledge.Stats }
	sessions SessionCounter
	redis    Pinger
}

// NewHealthHandler builds the health endpoint. redis may be nil.
func NewHealthHandler(version, llmProvider string, kb interface{ Stats() knowledge.Stats }, sessions SessionCounter, redis Pinger) *HealthHandler {
	if llmProvider == "" {
		llmProvider = "none"
	}
	return &HealthHandler{version: version, provider: llmProvider, kb: kb, sessions: sessions, redis: redis}
}

// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	checks := map[string]string{}
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Ping(ctx); err != nil {
			status = "degraded"
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          status,
		"version":         h.version,
		"llm_provider":    h.provider,
		"active_sessions": h.sessions.Len(),
		"knowledge":       h.kb.Stats(),
		"checks":          checks,
	})
}
