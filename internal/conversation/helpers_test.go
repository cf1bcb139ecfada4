package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
	"github.com/wolfman30/novatech-assistant/internal/pipeline"
	"github.com/wolfman30/novatech-assistant/internal/query"
	"github.com/wolfman30/novatech-assistant/internal/session"
)

type stubLLMClient struct {
	mu        sync.Mutex
	responses []LLMResponse
	errs      []error
	err       error
	block     bool
	requests  []LLMRequest
	calls     int
}

func (s *stubLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	call := s.calls
	s.calls++
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return LLMResponse{}, ctx.Err()
	}
	if call < len(s.errs) && s.errs[call] != nil {
		return LLMResponse{}, s.errs[call]
	}
	if len(s.responses) > 0 {
		if call >= len(s.responses) {
			return LLMResponse{}, errors.New("no scripted response")
		}
		return s.responses[call], nil
	}
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Text: "stub reply"}, nil
}

func (s *stubLLMClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubLLMClient) lastRequest() LLMRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func newTestLoader(t *testing.T) *knowledge.Loader {
	t.Helper()
	loader, err := knowledge.NewLoader("../../knowledge_base", knowledge.Options{})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	return loader
}

func newPipelineFor(t *testing.T, store *session.Store) *pipeline.Orchestrator {
	t.Helper()
	tables, err := query.DefaultTables()
	if err != nil {
		t.Fatalf("DefaultTables: %v", err)
	}
	loader := newTestLoader(t)
	return pipeline.New(tables, knowledge.NewRetriever(loader), knowledge.NewAssembler(loader), store, pipeline.Config{})
}

func newTestService(t *testing.T, llm LLMClient, timeout time.Duration) *Service {
	t.Helper()
	store := session.NewStore(session.Options{Timeout: time.Minute})
	opts := Options{
		Templates: NewTemplates(newTestLoader(t)),
		Prompt:    PromptConfig{CompanyName: "NovaTech", MaxTokens: 256, Temperature: 0.7},
		Timeout:   timeout,
	}
	if llm != nil {
		opts.LLM = llm
	}
	return NewService(newPipelineFor(t, store), store, opts)
}

func emptyContext() knowledge.AssembledContext {
	return knowledge.Assemble(nil, "")
}
