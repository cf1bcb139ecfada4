package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/novatech-assistant/internal/learning"
	"github.com/wolfman30/novatech-assistant/internal/observability/metrics"
	"github.com/wolfman30/novatech-assistant/internal/pipeline"
	"github.com/wolfman30/novatech-assistant/internal/session"
)

// ErrEmptyMessage is returned for a blank chat message.
var ErrEmptyMessage = pipeline.ErrEmptyQuery

const defaultLLMTimeout = 8 * time.Second

var llmTracer = otel.Tracer("novatech.internal.conversation.llm")

// Source says where a reply came from.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceTemplate Source = "template"
	SourceCanned   Source = "canned"
	SourceFallback Source = "fallback"
	SourceGuard    Source = "guard"
)

// ChatRequest is one user message.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// ChatResponse is the assistant's reply and how it was produced.
type ChatResponse struct {
	SessionID    string         `json:"session_id"`
	Response     string         `json:"response"`
	Intent       string         `json:"intent"`
	Confidence   float64        `json:"confidence"`
	Route        pipeline.Route `json:"route"`
	State        session.State  `json:"state"`
	Source       Source         `json:"source"`
	Suggestions  []string       `json:"suggestions"`
	ProcessingMS int64          `json:"processing_ms"`
}

// Recorder learns from answered turns.
type Recorder interface {
	Record(ctx context.Context, in learning.Interaction)
}

// Options configures a Service. LLM may be nil, in which case every model
// answer is replaced by a fallback message. Learning is optional.
type Options struct {
	LLM       LLMClient
	Learning  Recorder
	Templates *Templates
	Prompt    PromptConfig
	Timeout   time.Duration
	Metrics   *metrics.ChatMetrics
	Logger    *slog.Logger
}

// Service runs the chat turn loop.
type Service struct {
	pipeline  *pipeline.Orchestrator
	sessions  *session.Store
	llm       LLMClient
	learning  Recorder
	templates *Templates
	prompt    PromptConfig
	timeout   time.Duration
	metrics   *metrics.ChatMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the pipeline and the session store it records into.
func NewService(p *pipeline.Orchestrator, sessions *session.Store, opts Options) *Service {
	s := &Service{
		pipeline:  p,
		sessions:  sessions,
		llm:       opts.LLM,
		learning:  opts.Learning,
		templates: opts.Templates,
		prompt:    opts.Prompt,
		timeout:   opts.Timeout,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if s.timeout <= 0 {
		s.timeout = defaultLLMTimeout
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Sessions returns the session store.
func (s *Service) Sessions() *session.Store { return s.sessions }

// Reply answers one message. Turns for the same session are applied in
// arrival order. Model failures never surface as errors; the reply falls back
// to a deterministic message instead.
func (s *Service) Reply(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	start := s.now()
	if strings.TrimSpace(req.Message) == "" {
		return ChatResponse{}, ErrEmptyMessage
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, span := llmTracer.Start(ctx, "conversation.reply")
	defer span.End()
	span.SetAttributes(attribute.String("novatech.session_id", sessionID))

	unlock := s.sessions.Lock(sessionID)
	defer unlock()

	sess, _ := s.sessions.GetOrCreate(sessionID, req.UserID)
	res, err := s.pipeline.ProcessQuery(ctx, req.Message, sessionID)
	if err != nil {
		span.RecordError(err)
		return ChatResponse{}, err
	}

	text, source := s.answer(ctx, res)
	sess.AddMessage(session.RoleAssistant, text)

	elapsed := s.now().Sub(start)
	if s.learning != nil && source != SourceFallback && source != SourceGuard {
		s.learning.Record(ctx, learning.Interaction{
			Query:      req.Message,
			Response:   text,
			Intent:     string(res.Intent),
			Confidence: res.OverallConfidence,
			ResponseMS: elapsed.Milliseconds(),
		})
	}
	s.metrics.ObserveTurn(string(res.Intent), string(res.RoutingDecision), string(source), elapsed.Seconds())
	s.metrics.SetActiveSessions(s.sessions.Len())
	span.SetAttributes(
		attribute.String("novatech.intent", string(res.Intent)),
		attribute.String("novatech.source", string(source)),
	)
	s.logger.Info("chat turn answered",
		"session_id", sessionID,
		"intent", res.Intent,
		"route", res.RoutingDecision,
		"state", res.SessionState,
		"source", source,
		"duration_ms", elapsed.Milliseconds(),
	)

	return ChatResponse{
		SessionID:    sessionID,
		Response:     text,
		Intent:       string(res.Intent),
		Confidence:   res.OverallConfidence,
		Route:        res.RoutingDecision,
		State:        res.SessionState,
		Source:       source,
		Suggestions:  res.Suggestions,
		ProcessingMS: elapsed.Milliseconds(),
	}, nil
}

func (s *Service) answer(ctx context.Context, res pipeline.ProcessingResult) (string, Source) {
	if name, text, ok := s.templates.Match(res.NormalizedQuery); ok {
		s.logger.Debug("template answer", "session_id", res.SessionID, "template", name)
		return text, SourceTemplate
	}
	if res.Directive.Response != "" {
		return res.Directive.Response, SourceCanned
	}

	if scan := ScanInput(res.OriginalQuery); scan.Blocked {
		s.metrics.ObserveGuard("input")
		s.logger.Warn("message blocked by prompt guard",
			"session_id", res.SessionID,
			"score", scan.Score,
			"reasons", scan.Reasons,
		)
		return blockedReply, SourceGuard
	}

	resp, err := s.complete(ctx, BuildRequest(res, s.prompt))
	if err == nil && strings.TrimSpace(resp.Text) == "" {
		err = errors.New("conversation: model returned an empty reply")
	}
	if err != nil {
		kind := ClassifyLLMError(err)
		s.metrics.ObserveLLMError(string(kind))
		s.logger.Warn("llm reply failed, using fallback message",
			"session_id", res.SessionID,
			"kind", kind,
			"error", err,
		)
		return FallbackMessage(kind, res.Context), SourceFallback
	}

	out := ScanOutput(resp.Text)
	if !out.Leaked {
		return resp.Text, SourceLLM
	}
	s.metrics.ObserveGuard("output")
	s.logger.Warn("model reply failed output scan", "session_id", res.SessionID, "reasons", out.Reasons)
	if out.Sanitized == "" {
		return FallbackMessage(KindPermanent, res.Context), SourceGuard
	}
	return out.Sanitized, SourceLLM
}

// complete calls the model within the configured timeout and retries a
// transient failure once while time remains.
func (s *Service) complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if s.llm == nil {
		return LLMResponse{}, ErrLLMUnavailable
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.llm.Complete(callCtx, req)
	if err != nil && ClassifyLLMError(err).Retryable() && callCtx.Err() == nil {
		resp, err = s.llm.Complete(callCtx, req)
	}
	return resp, err
}
