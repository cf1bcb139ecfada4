package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
	"github.com/wolfman30/novatech-assistant/internal/query"
	"github.com/wolfman30/novatech-assistant/internal/session"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	tables, err := query.DefaultTables()
	require.NoError(t, err)
	loader, err := knowledge.NewLoader("../../knowledge_base", knowledge.Options{})
	require.NoError(t, err)
	store := session.NewStore(session.Options{Timeout: time.Minute})
	return New(tables, knowledge.NewRetriever(loader), knowledge.NewAssembler(loader), store, Config{})
}

func TestSlangProductsScenario(t *testing.T) {
	o := newTestOrchestrator(t)

	res, err := o.ProcessQuery(context.Background(), "yo whats up with ur products", "s1")
	require.NoError(t, err)

	assert.Contains(t, res.NormalizedQuery, "hello")
	assert.Contains(t, res.NormalizedQuery, "what's up")
	assert.Contains(t, res.NormalizedQuery, "NovaTech")
	assert.Equal(t, query.IntentProducts, res.Intent)
	assert.GreaterOrEqual(t, res.ClassificationConfidence, 0.8)
	require.NotEmpty(t, res.KnowledgeResults)
	for _, r := range res.KnowledgeResults {
		assert.Equal(t, "products", r.Category)
	}
	assert.Equal(t, RouteAdvanced, res.RoutingDecision)
	assert.Equal(t, session.StateFollowUp, res.SessionState)
	assert.Equal(t, session.StateProductInquiry, res.Directive.Handler)
	assert.NotEmpty(t, res.Suggestions)
}

func TestLeadershipScenario(t *testing.T) {
	o := newTestOrchestrator(t)

	res, err := o.ProcessQuery(context.Background(), "who is the CEO", "s2")
	require.NoError(t, err)

	assert.Equal(t, query.IntentLeadership, res.Intent)
	require.NotEmpty(t, res.KnowledgeResults)
	for _, r := range res.KnowledgeResults {
		assert.Equal(t, "leadership", r.Category)
	}
	assert.Contains(t, res.Context.Text, "Maya Chen")
	assert.Contains(t, res.Entities["roles"], "ceo")
}

func TestNoOverlapScenario(t *testing.T) {
	o := newTestOrchestrator(t)

	res, err := o.ProcessQuery(context.Background(), "zxqv plmbr qwrtk", "s3")
	require.NoError(t, err)

	assert.Contains(t, []query.Intent{query.IntentUnknown, query.IntentGeneral}, res.Intent)
	assert.Equal(t, 0.0, res.ClassificationConfidence)
	assert.Empty(t, res.KnowledgeResults)
	assert.Equal(t, 0.0, res.KnowledgeConfidence)
	assert.Equal(t, RouteFallback, res.RoutingDecision)
	assert.Empty(t, res.Entities)
}

func TestEmptyQuery(t *testing.T) {
	o := newTestOrchestrator(t)
	for _, raw := range []string{"", "   ", "\n\t"} {
		_, err := o.ProcessQuery(context.Background(), raw, "s")
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}
	assert.Equal(t, 0, o.Sessions().Len())
}

func TestConversationFlowUpdatesSession(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	greet, err := o.ProcessQuery(ctx, "hi", "flow")
	require.NoError(t, err)
	assert.Equal(t, query.IntentGreeting, greet.Intent)
	assert.Equal(t, 1.0, greet.ClassificationConfidence)
	assert.NotEmpty(t, greet.Directive.Response)
	assert.Empty(t, greet.RecentContext)

	sess, ok := o.Sessions().Get("flow")
	require.True(t, ok)
	sess.AddMessage(session.RoleAssistant, greet.Directive.Response)

	prod, err := o.ProcessQuery(ctx, "what does NovaCRM cost", "flow")
	require.NoError(t, err)
	assert.Equal(t, query.IntentProducts, prod.Intent)
	assert.Equal(t, session.StateFollowUp, prod.SessionState)
	assert.Equal(t, "User: hi\nAssistant: "+greet.Directive.Response, prod.RecentContext)

	bye, err := o.ProcessQuery(ctx, "thanks bye", "flow")
	require.NoError(t, err)
	assert.Equal(t, query.IntentFarewell, bye.Intent)
	assert.Equal(t, session.StateClosing, bye.SessionState)
	assert.NotEmpty(t, bye.Directive.Response)

	st, err := o.Sessions().Stats("flow")
	require.NoError(t, err)
	assert.Equal(t, session.StateClosing, st.CurrentState)
	assert.Equal(t, 4, st.MessageCount)
	assert.Equal(t, "thanks bye", st.LastQuery)
}

func TestStatelessWithoutSessionID(t *testing.T) {
	o := newTestOrchestrator(t)
	res, err := o.ProcessQuery(context.Background(), "who is the CEO", "")
	require.NoError(t, err)
	assert.Equal(t, session.StateFollowUp, res.SessionState)
	assert.Equal(t, 0, o.Sessions().Len())
}

func TestThresholdControlsRoute(t *testing.T) {
	tables, err := query.DefaultTables()
	require.NoError(t, err)
	loader, err := knowledge.NewLoader("../../knowledge_base", knowledge.Options{})
	require.NoError(t, err)
	withThreshold := func(v float64) *Orchestrator {
		return New(tables, knowledge.NewRetriever(loader), knowledge.NewAssembler(loader), nil, Config{Threshold: &v})
	}

	res, err := withThreshold(1.01).ProcessQuery(context.Background(), "who is the CEO", "")
	require.NoError(t, err)
	assert.Equal(t, RouteFallback, res.RoutingDecision)

	res, err = withThreshold(0).ProcessQuery(context.Background(), "zzqx novatech", "")
	require.NoError(t, err)
	assert.Equal(t, RouteAdvanced, res.RoutingDecision, "zero threshold routes any company query to advanced")
}
