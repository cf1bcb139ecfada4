package conversation

import (
	"regexp"
	"strings"
)

// InputScan is the result of checking a user message before it reaches the model.
type InputScan struct {
	// Blocked means the message is not sent to the model.
	Blocked bool
	// Score is a heuristic risk score between 0 and 1.
	Score   float64
	Reasons []string
}

type guardPattern struct {
	re     *regexp.Regexp
	reason string
	weight float64
}

const blockThreshold = 0.7

// blockedReply answers messages that try to steer the assistant off its role.
const blockedReply = "I'm here to answer questions about NovaTech, its products, its leadership and its partners. What would you like to know?"

var inputPatterns = []guardPattern{
	// instruction overrides
	{regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?|directives?|programming)`), "injection:override_instructions", 0.9},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|my)\s+`), "injection:role_reassignment", 0.7},
	{regexp.MustCompile(`(?i)new\s+role\s*:|new\s+instructions?\s*:|system\s*prompt\s*:|<<\s*sys(tem)?\s*>>`), "injection:new_role", 0.9},
	{regexp.MustCompile(`(?i)(pretend|imagine|suppose|assume)\s+(that\s+)?(you\s+)?(are|have|were|don'?t\s+have)\s+(no\s+)?(rules?|restrictions?|limits?|guidelines?|filters?)`), "injection:pretend_no_rules", 0.9},
	{regexp.MustCompile(`(?i)bypass\s+(your\s+)?(safety|filters?|restrictions?|guidelines?|rules?)`), "injection:bypass", 0.8},
	{regexp.MustCompile(`(?i)jailbreak|DAN\s*mode|developer\s*mode|god\s*mode`), "injection:jailbreak_keyword", 0.9},

	// prompt and secret extraction
	{regexp.MustCompile(`(?i)(reveal|show|display|print|repeat|tell\s+me)\s+(me\s+)?(your\s+)?(system\s+prompt|instructions|initial\s+prompt|hidden\s+prompt|system\s+message)`), "exfiltration:system_prompt", 0.8},
	{regexp.MustCompile(`(?i)\b(api|secret|aws|gemini|redis|admin)\s*(key|token|secret|password|credential)s?\b`), "exfiltration:credentials", 0.8},
	{regexp.MustCompile(`(?i)repeat\s+(everything|all|the\s+text)\s+(above|before|from\s+the\s+(start|beginning))`), "exfiltration:repeat_above", 0.7},

	// framing tricks
	{regexp.MustCompile(`(?i)\[/?INST\]|\[/?SYS\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>|<\|user\|>|<\|assistant\|>`), "framing:special_tokens", 0.9},
	{regexp.MustCompile(`(?i)###\s*(system|instruction|human|assistant|user)\s*:`), "framing:role_markers", 0.7},
	{regexp.MustCompile(`(?i)the\s+real\s+(instructions?|task|prompt|conversation)\s+(is|starts?|begins?)`), "framing:real_instructions", 0.8},
	{regexp.MustCompile(`<\s*(script|iframe|object|embed|svg|form)\b`), "framing:html_injection", 0.6},
}

// ScanInput scores a user message for prompt injection. Several weak signals
// add up: the score is the strongest weight plus 0.1 per extra signal.
func ScanInput(message string) InputScan {
	if strings.TrimSpace(message) == "" {
		return InputScan{}
	}
	var scan InputScan
	for _, p := range inputPatterns {
		if !p.re.MatchString(message) {
			continue
		}
		scan.Reasons = append(scan.Reasons, p.reason)
		if p.weight > scan.Score {
			scan.Score = p.weight
		}
	}
	if n := len(scan.Reasons); n > 1 {
		scan.Score += float64(n-1) * 0.1
	}
	if scan.Score > 1 {
		scan.Score = 1
	}
	scan.Blocked = scan.Score >= blockThreshold
	return scan
}

// OutputScan is the result of checking a model reply before it is sent.
type OutputScan struct {
	Leaked  bool
	Reasons []string
	// Sanitized is the reply to send, empty when it cannot be salvaged.
	Sanitized string
}

type leakPattern struct {
	re     *regexp.Regexp
	reason string
	block  bool
}

var leakPatterns = []leakPattern{
	{regexp.MustCompile(`(?i)my (system\s+)?prompt\s+(is|says|tells|instructs)`), "leak:system_prompt", true},
	{regexp.MustCompile(`(?i)my instructions?\s+(are|say|tell|include|require)`), "leak:instructions", true},
	{regexp.MustCompile(`(?i)(here are|these are|the following are)\s+(my )?(system )?(instructions|rules|guidelines|prompts)`), "leak:rules_listing", true},
	{regexp.MustCompile(`(?i)(powered by|built on|running on)\s+(Gemini|Bedrock|Claude|GPT|OpenAI|Anthropic|Google)`), "leak:tech_stack", true},
	{regexp.MustCompile(`(?i)(api[_\s]?key|secret[_\s]?key|access[_\s]?token|bearer\s+token)\s*[:=]\s*\S+`), "leak:credential", true},
	{regexp.MustCompile(`AKIA[A-Z0-9]{16}`), "leak:aws_key", true},
	{regexp.MustCompile(`(?i)(postgres|redis|rediss|mongodb|s3)://\S+`), "leak:connection_url", true},
	{regexp.MustCompile(`(?i)/admin/|/internal/|/debug/`), "leak:internal_path", true},
	{regexp.MustCompile(`(?i)\bi('m| am) (a|an) (language model|LLM|large language model)\b`), "leak:model_identity", false},
}

var modelIdentitySentence = regexp.MustCompile(`(?i)[^.!?]*\bi('m| am) (a|an) (language model|LLM|large language model)\b[^.!?]*[.!?]?\s*`)

// ScanOutput checks a model reply for disclosures. Identity disclosures are
// cut out; anything else blanks the reply.
func ScanOutput(reply string) OutputScan {
	if strings.TrimSpace(reply) == "" {
		return OutputScan{Sanitized: reply}
	}
	var (
		reasons []string
		block   bool
	)
	for _, p := range leakPatterns {
		if p.re.MatchString(reply) {
			reasons = append(reasons, p.reason)
			block = block || p.block
		}
	}
	if len(reasons) == 0 {
		return OutputScan{Sanitized: reply}
	}
	out := OutputScan{Leaked: true, Reasons: reasons}
	if !block {
		out.Sanitized = strings.TrimSpace(modelIdentitySentence.ReplaceAllString(reply, ""))
	}
	return out
}
