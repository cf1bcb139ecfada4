package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wolfman30/novatech-assistant/internal/dynamic"
	"github.com/wolfman30/novatech-assistant/internal/knowledge"
	"github.com/wolfman30/novatech-assistant/internal/learning"
)

// ConnectionCounter reports open chat sockets.
type ConnectionCounter interface {
	Connections() int
}

// RefreshReporter describes the dynamic refresher.
type RefreshReporter interface {
	Categories() []string
	LastReport() dynamic.Report
}

// StatusOptions lists what the admin status page reports on. Any source may
// be nil and is then left out.
type StatusOptions struct {
	Version     string
	LLMProvider string
	Knowledge   interface{ Stats() knowledge.Stats }
	Sessions    SessionCounter
	Sockets     ConnectionCounter
	Refresher   RefreshReporter
	Learning    interface{ Stats() learning.Stats }
	Cache       ContextCache
	Redis       Pinger
	Started     time.Time
	Now         func() time.Time
}

// StatusHandler is the operator view of every subsystem.
type StatusHandler struct {
	opts StatusOptions
}

func NewStatusHandler(opts StatusOptions) *StatusHandler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Started.IsZero() {
		opts.Started = opts.Now()
	}
	if opts.LLMProvider == "" {
		opts.LLMProvider = "none"
	}
	return &StatusHandler{opts: opts}
}

// Status reports uptime, knowledge, sessions, sockets, the last refresh and
// learning stats.
// GET /api/admin/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	o := h.opts
	now := o.Now()

	aiService := "active"
	if o.LLMProvider == "none" {
		aiService = "inactive"
	}
	body := map[string]any{
		"backend":        "online",
		"version":        o.Version,
		"llm_provider":   o.LLMProvider,
		"ai_service":     aiService,
		"uptime_seconds": int64(now.Sub(o.Started).Seconds()),
		"timestamp":      now.UTC().Format(time.RFC3339),
	}
	if o.Knowledge != nil {
		body["knowledge"] = o.Knowledge.Stats()
	}
	if o.Sessions != nil {
		body["active_sessions"] = o.Sessions.Len()
	}
	if o.Sockets != nil {
		body["websocket_connections"] = o.Sockets.Connections()
	}
	if o.Cache != nil {
		body["context_cache"] = o.Cache.CacheStats()
	}
	if o.Refresher != nil {
		dyn := map[string]any{"categories": o.Refresher.Categories(), "last_refresh": nil}
		if last := o.Refresher.LastReport(); !last.StartedAt.IsZero() {
			dyn["last_refresh"] = last
		}
		body["dynamic"] = dyn
	}
	if o.Learning != nil {
		body["learning"] = o.Learning.Stats()
	}

	redisStatus := "disabled"
	if o.Redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		redisStatus = "connected"
		if err := o.Redis.Ping(ctx); err != nil {
			redisStatus = "error: " + err.Error()
		}
	}
	body["redis"] = redisStatus

	writeJSON(w, http.StatusOK, body)
}
