package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/novatech-assistant/internal/api/router"
	appconfig "github.com/wolfman30/novatech-assistant/internal/config"
	"github.com/wolfman30/novatech-assistant/internal/conversation"
	"github.com/wolfman30/novatech-assistant/internal/dynamic"
	"github.com/wolfman30/novatech-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/novatech-assistant/internal/http/middleware"
	"github.com/wolfman30/novatech-assistant/internal/knowledge"
	"github.com/wolfman30/novatech-assistant/internal/learning"
	"github.com/wolfman30/novatech-assistant/internal/observability/metrics"
	"github.com/wolfman30/novatech-assistant/internal/pipeline"
	"github.com/wolfman30/novatech-assistant/internal/query"
	"github.com/wolfman30/novatech-assistant/internal/session"
	"github.com/wolfman30/novatech-assistant/internal/webchat"
	"github.com/wolfman30/novatech-assistant/pkg/logging"
)

const watchDebounce = 250 * time.Millisecond

// App is the fully wired assistant: knowledge base, query tables, sessions,
// the conversation service, the learning store and the dynamic data refresher.
type App struct {
	Config      *appconfig.Config
	Version     string
	Logger      *logging.Logger
	Knowledge   *knowledge.Loader
	Tables      *query.Tables
	Assembler   *knowledge.Assembler
	Sessions    *session.Store
	Pipeline    *pipeline.Orchestrator
	Service     *conversation.Service
	Refresher   *dynamic.Refresher
	Learning    *learning.Store
	Webchat     *webchat.Handler
	Metrics     *metrics.ChatMetrics
	Redis       *redis.Client
	LLMProvider string

	started        time.Time
	metricsHandler http.Handler
	closers        []io.Closer
}

// BuildOptions tunes Build for the server and the CLI.
type BuildOptions struct {
	// VerifyRedis pings Redis and drops it when unreachable.
	VerifyRedis bool
	// SkipLLM leaves the LLM client nil, for commands that never call a model.
	SkipLLM bool
}

// Build wires every component from config. Nothing is started; call Run for
// the background jobs and Router for the HTTP surface.
func Build(ctx context.Context, cfg *appconfig.Config, version string, logger *logging.Logger, opts BuildOptions) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	app := &App{Config: cfg, Version: version, Logger: logger, LLMProvider: ProviderNone, started: time.Now()}
	app.Metrics, app.metricsHandler = BuildMetrics()

	if err := SyncKnowledgeFromS3(ctx, cfg, logger); err != nil {
		return nil, err
	}
	loader, err := knowledge.NewLoader(cfg.KnowledgeDir, knowledge.Options{
		StaleCheckInterval: cfg.KnowledgeStaleCheck,
		Logger:             logger.Component("knowledge"),
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load knowledge base: %w", err)
	}
	loader.OnReload(func(s *knowledge.Snapshot) {
		app.Metrics.ObserveReload(s.Version, nil)
	})
	app.Metrics.ObserveReload(loader.Current().Version, nil)
	app.Knowledge = loader

	app.Tables, err = loadTables(cfg.QueryTablesPath)
	if err != nil {
		return nil, err
	}

	app.Sessions = session.NewStore(session.Options{
		Timeout:    cfg.SessionTimeout,
		MaxHistory: cfg.SessionMaxHistory,
		Logger:     logger.Component("session"),
	})
	app.Assembler = knowledge.NewAssembler(loader)
	app.Pipeline = pipeline.New(app.Tables, knowledge.NewRetriever(loader), app.Assembler, app.Sessions, pipeline.Config{
		Threshold:      &cfg.AdvancedThreshold,
		RecentMessages: cfg.RecentContextMessages,
		Logger:         logger.Component("pipeline"),
	})

	app.Redis = BuildRedisClient(ctx, cfg, logger, opts.VerifyRedis)
	if app.Redis != nil {
		app.closers = append(app.closers, app.Redis)
	}
	app.Learning = BuildLearning(ctx, cfg, app.Tables, app.Redis, logger)

	var llm conversation.LLMClient
	if !opts.SkipLLM {
		llm, app.LLMProvider, err = BuildLLMClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if c, ok := llm.(io.Closer); ok {
			app.closers = append(app.closers, c)
		}
	}
	convOpts := conversation.Options{
		LLM:       llm,
		Templates: conversation.NewTemplates(loader),
		Prompt: conversation.PromptConfig{
			CompanyName: cfg.CompanyName,
			MaxTokens:   int32(cfg.LLMMaxTokens),
			Temperature: float32(cfg.LLMTemperature),
		},
		Timeout: cfg.LLMTimeout,
		Metrics: app.Metrics,
		Logger:  logger.Component("conversation"),
	}
	if app.Learning != nil {
		convOpts.Learning = app.Learning
	}
	app.Service = conversation.NewService(app.Pipeline, app.Sessions, convOpts)

	app.Webchat = webchat.NewHandler(app.Service, app.Sessions, cfg.CORSAllowedOrigins, logger)
	app.Refresher = BuildRefresher(cfg, loader, app.Redis, app.Metrics, logger, func(r dynamic.Report) {
		app.Webchat.NotifyUpdated(r.Updated)
	})

	logger.Info("assistant wired",
		"knowledge_version", loader.Current().Version,
		"categories", len(loader.Current().Categories()),
		"llm_provider", app.LLMProvider,
		"dynamic_categories", app.Refresher.Categories(),
		"redis", app.Redis != nil,
		"learning", app.Learning != nil,
	)
	return app, nil
}

func loadTables(path string) (*query.Tables, error) {
	if strings.TrimSpace(path) == "" {
		tables, err := query.DefaultTables()
		if err != nil {
			return nil, fmt.Errorf("bootstrap: default query tables: %w", err)
		}
		return tables, nil
	}
	tables, err := query.LoadTablesFile(path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: query tables %s: %w", path, err)
	}
	return tables, nil
}

// SyncKnowledgeFromS3 mirrors the knowledge bucket into the local directory
// when a bucket is configured.
func SyncKnowledgeFromS3(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	if strings.TrimSpace(cfg.KnowledgeS3Bucket) == "" {
		return nil
	}
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	if err := os.MkdirAll(cfg.KnowledgeDir, 0o755); err != nil {
		return fmt.Errorf("bootstrap: knowledge dir: %w", err)
	}
	syncer := knowledge.NewS3Syncer(NewS3Client(awsCfg, cfg), cfg.KnowledgeS3Bucket, cfg.KnowledgeS3Prefix, cfg.KnowledgeDir, nil, logger.Component("knowledge"))
	if _, err := syncer.Sync(ctx); err != nil {
		return fmt.Errorf("bootstrap: sync knowledge from s3: %w", err)
	}
	return nil
}

// Router builds the HTTP surface.
func (a *App) Router() http.Handler {
	var redisPinger handlers.Pinger
	if a.Redis != nil {
		redisPinger = handlers.PingFunc(func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() })
	}
	var limiter *httpmiddleware.RateLimiter
	if a.Config.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(a.Config.RateLimitRPS, a.Config.RateLimitBurst)
	}

	status := handlers.StatusOptions{
		Version:     a.Version,
		LLMProvider: a.LLMProvider,
		Knowledge:   a.Knowledge,
		Sessions:    a.Sessions,
		Sockets:     a.Webchat,
		Refresher:   a.Refresher,
		Cache:       a.Assembler,
		Redis:       redisPinger,
		Started:     a.started,
	}
	var learningHandler *handlers.LearningHandler
	if a.Learning != nil {
		status.Learning = a.Learning
		learningHandler = handlers.NewLearningHandler(a.Learning, a.Logger)
	}

	return router.New(&router.Config{
		Logger:              a.Logger,
		ConversationHandler: conversation.NewHandler(a.Service, a.Config.RecentContextMessages, a.Logger),
		KnowledgeHandler:    handlers.NewKnowledgeHandler(a.Knowledge, a.Logger),
		DynamicHandler:      handlers.NewDynamicHandler(a.Refresher, a.Logger),
		AdminHandler:        handlers.NewAdminHandler(a.Knowledge, a.Assembler, a.Refresher, a.Logger),
		HealthHandler:       handlers.NewHealthHandler(a.Version, a.LLMProvider, a.Knowledge, a.Sessions, redisPinger),
		LearningHandler:     learningHandler,
		StatusHandler:       handlers.NewStatusHandler(status),
		Webchat:             a.Webchat,
		MetricsHandler:      a.metricsHandler,
		CORSAllowedOrigins:  a.Config.CORSAllowedOrigins,
		RateLimiter:         limiter,
		AdminJWTSecret:      a.Config.AdminJWTSecret,
		AdminAPIKey:         a.Config.AdminAPIKey,
	})
}

// Run starts the background jobs, the knowledge file watcher and the dynamic
// refresh loop, and blocks until ctx is cancelled. It returns at once when
// neither is enabled. Sessions are never swept here; they expire on lookup.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.Config.KnowledgeWatch {
		w, err := knowledge.NewWatcher(a.Knowledge, watchDebounce, a.Logger.Component("knowledge"))
		if err != nil {
			a.Logger.Warn("knowledge watcher disabled", "error", err)
		} else {
			g.Go(func() error {
				w.Run(gctx)
				return nil
			})
		}
	}

	if a.Config.RefreshInterval > 0 {
		g.Go(func() error {
			a.Refresher.Run(gctx, a.Config.RefreshInterval)
			return nil
		})
	}

	return g.Wait()
}

// Close releases the LLM and Redis clients.
func (a *App) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
