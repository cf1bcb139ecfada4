package conversation

import "github.com/wolfman30/novatech-assistant/internal/knowledge"

const (
	rateLimitedLead = "I'm getting a lot of questions right now, so here is what I can share directly from NovaTech's records:"
	timeoutLead     = "That took me longer than expected, so here is what I found in NovaTech's records:"
	transientLead   = "I'm having trouble reaching my language service, but here is what I found in NovaTech's records:"
	permanentLead   = "I can't compose a full answer right now, but here is what I found in NovaTech's records:"

	rateLimitedBare = "I'm getting a lot of questions right now. Please try again in a moment."
	timeoutBare     = "That took me longer than expected. Please try asking again."
	unavailableBare = "I'm experiencing technical difficulties. Please try again in a moment."
)

// FallbackMessage is the reply used when the model call fails. It is
// deterministic for a given kind and context and never empty. When the
// assembled context carries knowledge it is included so the user still gets
// an answer.
func FallbackMessage(kind ErrorKind, ctx knowledge.AssembledContext) string {
	if !ctx.HasKnowledge() {
		switch kind {
		case KindRateLimited:
			return rateLimitedBare
		case KindTimeout:
			return timeoutBare
		default:
			return unavailableBare
		}
	}

	lead := permanentLead
	switch kind {
	case KindRateLimited:
		lead = rateLimitedLead
	case KindTimeout:
		lead = timeoutLead
	case KindTransient:
		lead = transientLead
	}
	return lead + "\n\n" + ctx.Text
}
