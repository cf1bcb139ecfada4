package conversation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wolfman30/novatech-assistant/internal/pipeline"
)

const maxPromptFacts = 8

// PromptConfig carries the persona and generation settings.
type PromptConfig struct {
	CompanyName string
	MaxTokens   int32
	Temperature float32
}

func (c PromptConfig) company() string {
	if strings.TrimSpace(c.CompanyName) == "" {
		return "NovaTech"
	}
	return c.CompanyName
}

func systemPrompt(company string) string {
	return fmt.Sprintf(`You are %[1]s AI, a friendly and helpful assistant for %[1]s Solutions.
Respond naturally and conversationally, using the company knowledge you are given.

- Sound like a real person having a casual conversation.
- Use contractions and keep answers short unless asked for detail.
- Never invent names, numbers or dates that are not in the company knowledge.
- If the knowledge does not cover the question, say so and offer to help with something related.`, company)
}

const groundingRule = "Ground every factual statement in the Company Knowledge and Relevant Facts sections. Prefer the facts with the highest relevance."

// BuildRequest turns a processed query into a model request. Advanced routes
// get the ranked facts and entities on top of the assembled context; fallback
// routes keep to the conversation and the question.
func BuildRequest(res pipeline.ProcessingResult, cfg PromptConfig) LLMRequest {
	system := []string{systemPrompt(cfg.company())}
	if res.RoutingDecision == pipeline.RouteAdvanced {
		system = append(system, groundingRule)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Intent: %s\n", res.Intent)
	if res.Directive.Instruction != "" {
		fmt.Fprintf(&b, "Instruction: %s\n", res.Directive.Instruction)
	}

	if res.RoutingDecision == pipeline.RouteAdvanced {
		b.WriteString("\nCompany Knowledge:\n")
		b.WriteString(res.Context.Text)
		b.WriteString("\n")
		writeFacts(&b, res)
		writeEntities(&b, res.Entities)
	} else if res.Directive.UseKnowledge && res.Context.HasKnowledge() {
		b.WriteString("\nCompany Knowledge:\n")
		b.WriteString(res.Context.Text)
		b.WriteString("\n")
	}

	if res.RecentContext != "" {
		b.WriteString("\nRecent conversation:\n")
		b.WriteString(res.RecentContext)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nUser question: %s\n", res.OriginalQuery)

	return LLMRequest{
		System:      system,
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: b.String()}},
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
}

func writeFacts(b *strings.Builder, res pipeline.ProcessingResult) {
	if len(res.KnowledgeResults) == 0 {
		return
	}
	b.WriteString("\nRelevant Facts:\n")
	for i, r := range res.KnowledgeResults {
		if i == maxPromptFacts {
			break
		}
		fmt.Fprintf(b, "- [%s] %s: %s (relevance %.2f)\n", r.Category, r.Path, r.Value.Compact(3), r.Relevance)
	}
}

func writeEntities(b *strings.Builder, entities map[string][]string) {
	if len(entities) == 0 {
		return
	}
	names := make([]string, 0, len(entities))
	for name := range entities {
		names = append(names, name)
	}
	sort.Strings(names)
	b.WriteString("\nMentioned: ")
	for i, name := range names {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s: %s", name, strings.Join(entities[name], ", "))
	}
	b.WriteString("\n")
}
