package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/novatech-assistant/internal/conversation"
	"github.com/wolfman30/novatech-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/novatech-assistant/internal/http/middleware"
	"github.com/wolfman30/novatech-assistant/internal/webchat"
	"github.com/wolfman30/novatech-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	KnowledgeHandler    *handlers.KnowledgeHandler
	DynamicHandler      *handlers.DynamicHandler
	AdminHandler        *handlers.AdminHandler
	HealthHandler       *handlers.HealthHandler
	LearningHandler     *handlers.LearningHandler
	StatusHandler       *handlers.StatusHandler
	Webchat             *webchat.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// RateLimiter throttles /api and /ws per client IP. Nil disables it.
	RateLimiter *httpmiddleware.RateLimiter

	// Admin routes accept a bearer JWT signed with AdminJWTSecret or the
	// X-Admin-Key header matching AdminAPIKey.
	AdminJWTSecret string
	AdminAPIKey    string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.HealthHandler != nil {
			public.Get("/health", cfg.HealthHandler.Health)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Webchat != nil {
			public.Get("/chat/widget.js", cfg.Webchat.HandleWidgetJS)
		}
	})

	// Throttled endpoints
	r.Group(func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}

		if cfg.Webchat != nil {
			api.Get("/ws", cfg.Webchat.HandleWebSocket)
			api.Get("/chat/history", cfg.Webchat.HandleHistory)
		}

		api.Route("/api", func(r chi.Router) {
			if cfg.ConversationHandler != nil {
				r.Post("/chat", cfg.ConversationHandler.Chat)
				r.Get("/conversation/{sessionID}", cfg.ConversationHandler.Conversation)
				r.Delete("/conversation/{sessionID}", cfg.ConversationHandler.DeleteConversation)
				r.Get("/conversations", cfg.ConversationHandler.Conversations)
			}
			if cfg.KnowledgeHandler != nil {
				r.Get("/knowledge", cfg.KnowledgeHandler.List)
				r.Get("/knowledge/{category}", cfg.KnowledgeHandler.Category)
			}
			if cfg.DynamicHandler != nil {
				r.Get("/dynamic/{category}", cfg.DynamicHandler.Latest)
			}
			if cfg.LearningHandler != nil {
				r.Post("/feedback", cfg.LearningHandler.Feedback)
				r.Get("/learning/stats", cfg.LearningHandler.Stats)
				r.Get("/learning/recommendations", cfg.LearningHandler.Recommendations)
				r.Get("/learning/faq", cfg.LearningHandler.FAQ)
			}

			// Admin routes (bearer JWT or API key)
			r.Route("/admin", func(admin chi.Router) {
				admin.Use(httpmiddleware.AdminAuth(cfg.AdminJWTSecret, cfg.AdminAPIKey))
				if cfg.AdminHandler != nil {
					admin.Post("/refresh", cfg.AdminHandler.Refresh)
					admin.Post("/reload", cfg.AdminHandler.Reload)
					admin.Get("/validate", cfg.AdminHandler.Validate)
					admin.Put("/knowledge/{category}", cfg.AdminHandler.PutCategory)
					admin.Post("/cache/clear", cfg.AdminHandler.ClearCache)
				}
				if cfg.StatusHandler != nil {
					admin.Get("/status", cfg.StatusHandler.Status)
				}
				if cfg.LearningHandler != nil {
					admin.Post("/learning/reset", cfg.LearningHandler.Reset)
				}
				if cfg.ConversationHandler != nil {
					admin.Post("/conversations/reset", cfg.ConversationHandler.ResetConversations)
				}
			})
		})
	})

	return r
}
