package conversation

import (
	"strings"
	"testing"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
	"github.com/wolfman30/novatech-assistant/internal/pipeline"
	"github.com/wolfman30/novatech-assistant/internal/query"
	"github.com/wolfman30/novatech-assistant/internal/session"
)

func sampleResult(route pipeline.Route) pipeline.ProcessingResult {
	ceo := knowledge.Map(knowledge.F("name", knowledge.String("Maya Chen")))
	return pipeline.ProcessingResult{
		OriginalQuery:   "who is the CEO",
		NormalizedQuery: "who is the ceo",
		Intent:          query.IntentLeadership,
		KnowledgeResults: []knowledge.Result{
			{Category: "leadership", Path: "leadership.ceo", Key: "ceo", Value: ceo, Relevance: 1},
		},
		Entities:        map[string][]string{"roles": {"ceo"}},
		RoutingDecision: route,
		Directive:       session.Directive{Handler: session.StateLeadershipInfo, Instruction: "Answer the leadership question.", UseKnowledge: true},
		Context:         knowledge.Assemble([]knowledge.Section{{Name: "leadership", Data: knowledge.Map(knowledge.F("leadership.ceo", ceo))}}, "who is the ceo"),
		RecentContext:   "User: hi\nAssistant: Hello!",
	}
}

func TestBuildRequestAdvanced(t *testing.T) {
	req := BuildRequest(sampleResult(pipeline.RouteAdvanced), PromptConfig{CompanyName: "NovaTech", MaxTokens: 512, Temperature: 0.3})

	if len(req.System) != 2 || !strings.Contains(req.System[0], "NovaTech AI") || req.System[1] != groundingRule {
		t.Fatalf("unexpected system prompts %#v", req.System)
	}
	if req.MaxTokens != 512 || req.Temperature != 0.3 {
		t.Fatalf("generation settings not carried: %#v", req)
	}
	content := req.Messages[0].Content
	for _, want := range []string{
		"Intent: leadership",
		"Instruction: Answer the leadership question.",
		"Company Knowledge:\nLeadership:\n- leadership.ceo: {name: Maya Chen}",
		"Relevant Facts:\n- [leadership] leadership.ceo: {name: Maya Chen} (relevance 1.00)",
		"Mentioned: roles: ceo",
		"Recent conversation:\nUser: hi\nAssistant: Hello!",
		"User question: who is the CEO",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in prompt:\n%s", want, content)
		}
	}
}

func TestBuildRequestFallbackIsMinimal(t *testing.T) {
	res := sampleResult(pipeline.RouteFallback)
	res.Directive.UseKnowledge = false

	req := BuildRequest(res, PromptConfig{})
	content := req.Messages[0].Content
	if len(req.System) != 1 {
		t.Fatalf("fallback route should not add the grounding rule: %#v", req.System)
	}
	if strings.Contains(content, "Relevant Facts") || strings.Contains(content, "Company Knowledge") || strings.Contains(content, "Mentioned") {
		t.Fatalf("fallback prompt should be minimal:\n%s", content)
	}
	if !strings.Contains(content, "Recent conversation:") || !strings.Contains(content, "User question: who is the CEO") {
		t.Fatalf("fallback prompt lost the conversation:\n%s", content)
	}
	if !strings.Contains(req.System[0], "You are NovaTech AI") {
		t.Fatalf("default company name not applied: %s", req.System[0])
	}
}
