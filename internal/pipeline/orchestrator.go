// Package pipeline runs a user message through query understanding,
// knowledge retrieval, context assembly and the session state machine.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
	"github.com/wolfman30/novatech-assistant/internal/query"
	"github.com/wolfman30/novatech-assistant/internal/session"
)

// ErrEmptyQuery is returned for blank input.
var ErrEmptyQuery = errors.New("pipeline: empty query")

// Route tells the reply builder how much structure to put in the prompt.
type Route string

const (
	RouteAdvanced Route = "advanced"
	RouteFallback Route = "fallback"
)

const (
	DefaultThreshold      = 0.5
	DefaultRecentMessages = 5
)

var tracer = otel.Tracer("novatech.internal.pipeline")

// ProcessingResult is everything known about a query before the model is called.
type ProcessingResult struct {
	SessionID                string                     `json:"session_id,omitempty"`
	OriginalQuery            string                     `json:"original_query"`
	NormalizedQuery          string                     `json:"normalized_query"`
	Intent                   query.Intent               `json:"intent"`
	ClassificationConfidence float64                    `json:"classification_confidence"`
	KnowledgeResults         []knowledge.Result         `json:"knowledge_results"`
	KnowledgeConfidence      float64                    `json:"knowledge_confidence"`
	OverallConfidence        float64                    `json:"overall_confidence"`
	Entities                 map[string][]string        `json:"entities"`
	RoutingDecision          Route                      `json:"routing_decision"`
	SessionState             session.State              `json:"session_state"`
	Directive                session.Directive          `json:"directive"`
	Keywords                 []string                   `json:"keywords"`
	Suggestions              []string                   `json:"suggestions"`
	Context                  knowledge.AssembledContext `json:"context"`
	RecentContext            string                     `json:"recent_context,omitempty"`
	Duration                 time.Duration              `json:"-"`
}

// Config tunes routing and how much history is captured.
type Config struct {
	// Threshold is the overall confidence needed for the advanced route.
	// Nil means DefaultThreshold; zero sends every company query down it.
	Threshold      *float64
	RecentMessages int
	Logger         *slog.Logger
}

// Orchestrator wires the query tables, the knowledge base and the session
// store into a single per-message pass. It never calls a model.
type Orchestrator struct {
	tables    *query.Tables
	retriever *knowledge.Retriever
	assembler *knowledge.Assembler
	sessions  *session.Store

	threshold      float64
	recentMessages int
	logger         *slog.Logger
	now            func() time.Time
}

// New builds an orchestrator. A nil session store makes every call stateless.
func New(tables *query.Tables, retriever *knowledge.Retriever, assembler *knowledge.Assembler, sessions *session.Store, cfg Config) *Orchestrator {
	o := &Orchestrator{
		tables:         tables,
		retriever:      retriever,
		assembler:      assembler,
		sessions:       sessions,
		threshold:      DefaultThreshold,
		recentMessages: cfg.RecentMessages,
		logger:         cfg.Logger,
		now:            time.Now,
	}
	if cfg.Threshold != nil {
		o.threshold = *cfg.Threshold
	}
	if o.recentMessages <= 0 {
		o.recentMessages = DefaultRecentMessages
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Sessions exposes the store the orchestrator records turns into.
func (o *Orchestrator) Sessions() *session.Store { return o.sessions }

// ProcessQuery analyses raw for sessionID, advances the session state machine
// and appends the user message. An empty sessionID processes the query
// without touching any session.
func (o *Orchestrator) ProcessQuery(ctx context.Context, raw, sessionID string) (ProcessingResult, error) {
	_, span := tracer.Start(ctx, "pipeline.process_query")
	defer span.End()

	if strings.TrimSpace(raw) == "" {
		span.RecordError(ErrEmptyQuery)
		return ProcessingResult{}, ErrEmptyQuery
	}
	start := o.now()

	normalized := o.tables.Normalizer.Normalize(raw)
	cls := o.tables.Classifier.Classify(normalized)
	entities := o.tables.Entities.Extract(normalized)

	results, knowledgeConf := o.retriever.Search(normalized, o.tables.CategoryFor(cls.Intent))
	overall := (cls.Confidence + knowledgeConf) / 2

	route := RouteFallback
	if overall >= o.threshold && o.tables.IsCompanyQuery(cls.Intent) {
		route = RouteAdvanced
	}

	assembled := o.assembler.ContextFor(normalized, results)

	res := ProcessingResult{
		SessionID:                sessionID,
		OriginalQuery:            raw,
		NormalizedQuery:          normalized,
		Intent:                   cls.Intent,
		ClassificationConfidence: cls.Confidence,
		KnowledgeResults:         results,
		KnowledgeConfidence:      knowledgeConf,
		OverallConfidence:        overall,
		Entities:                 entities,
		RoutingDecision:          route,
		Keywords:                 o.tables.Keywords.Keywords(normalized),
		Suggestions:              o.tables.Suggester.Suggest(cls.Intent),
		Context:                  assembled,
	}

	current := session.StateGreeting
	tc := session.TurnContext{HasKnowledge: assembled.HasKnowledge()}
	var sess *session.Session
	if o.sessions != nil && sessionID != "" {
		sess, _ = o.sessions.GetOrCreate(sessionID, "")
		current = sess.State()
		tc.ResponseCount = sess.ResponseCount()
		tc.RecentTopic = sess.RecentTopic()
		res.RecentContext = sess.RecentContext(o.recentMessages)
	}

	next, directive := session.Transition(current, cls.Intent, tc)
	res.SessionState = next
	res.Directive = directive

	if sess != nil {
		sess.SetState(next)
		sess.RecordQuery(raw, cls.Intent)
		sess.AddMessage(session.RoleUser, raw)
	}

	res.Duration = o.now().Sub(start)
	span.SetAttributes(
		attribute.String("novatech.session_id", sessionID),
		attribute.String("novatech.intent", string(cls.Intent)),
		attribute.Float64("novatech.confidence", overall),
		attribute.String("novatech.route", string(route)),
		attribute.Int("novatech.knowledge_results", len(results)),
	)
	o.logger.Debug("query processed",
		"session_id", sessionID,
		"intent", cls.Intent,
		"classification_confidence", cls.Confidence,
		"knowledge_confidence", knowledgeConf,
		"route", route,
		"state", next,
	)
	return res, nil
}
