package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/novatech-assistant/internal/query"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name        string
		current     State
		intent      query.Intent
		wantHandler State
		wantNext    State
	}{
		{"greeting from start", StateGreeting, query.IntentGreeting, StateGreeting, StateQuestionAnswering},
		{"greeting reopens closed session", StateClosing, query.IntentGreeting, StateGreeting, StateQuestionAnswering},
		{"products", StateQuestionAnswering, query.IntentProducts, StateProductInquiry, StateFollowUp},
		{"leadership", StateGreeting, query.IntentLeadership, StateLeadershipInfo, StateFollowUp},
		{"company info", StateQuestionAnswering, query.IntentCompanyInfo, StateCompanyInfo, StateFollowUp},
		{"contact info", StateQuestionAnswering, query.IntentContactInfo, StateCompanyInfo, StateFollowUp},
		{"partners", StateFollowUp, query.IntentPartners, StateCompanyInfo, StateFollowUp},
		{"general after follow up", StateFollowUp, query.IntentGeneral, StateFollowUp, StateQuestionAnswering},
		{"general", StateQuestionAnswering, query.IntentGeneral, StateQuestionAnswering, StateQuestionAnswering},
		{"unknown from greeting", StateGreeting, query.IntentUnknown, StateQuestionAnswering, StateQuestionAnswering},
		{"real time", StateProductInquiry, query.IntentRealTime, StateQuestionAnswering, StateQuestionAnswering},
		{"farewell", StateQuestionAnswering, query.IntentFarewell, StateClosing, StateClosing},
		{"closing is terminal", StateClosing, query.IntentGeneral, StateClosing, StateClosing},
		{"closing ignores unknown", StateClosing, query.IntentUnknown, StateClosing, StateClosing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, d := Transition(tt.current, tt.intent, TurnContext{HasKnowledge: true})
			assert.Equal(t, tt.wantNext, next)
			assert.Equal(t, tt.wantHandler, d.Handler)
			assert.NotEmpty(t, d.Instruction)
		})
	}
}

func TestTransitionCannedResponses(t *testing.T) {
	_, first := Transition(StateGreeting, query.IntentGreeting, TurnContext{ResponseCount: 0})
	_, second := Transition(StateGreeting, query.IntentGreeting, TurnContext{ResponseCount: 1})
	_, again := Transition(StateGreeting, query.IntentGreeting, TurnContext{ResponseCount: 3})
	assert.Equal(t, greetings[0], first.Response)
	assert.Equal(t, greetings[1], second.Response)
	assert.Equal(t, first.Response, again.Response)

	_, bye := Transition(StateFollowUp, query.IntentFarewell, TurnContext{ResponseCount: 4})
	assert.Equal(t, closings[1], bye.Response)
	assert.False(t, bye.UseKnowledge)
}

func TestTransitionInfoHandlersWithoutKnowledge(t *testing.T) {
	tests := []struct {
		intent query.Intent
		want   string
	}{
		{query.IntentProducts, productsNoContext},
		{query.IntentLeadership, leadershipNoContext},
		{query.IntentCompanyInfo, companyNoContext},
	}
	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			_, d := Transition(StateQuestionAnswering, tt.intent, TurnContext{})
			assert.Equal(t, tt.want, d.Response)
			assert.True(t, d.UseKnowledge)

			_, withKnowledge := Transition(StateQuestionAnswering, tt.intent, TurnContext{HasKnowledge: true})
			assert.Empty(t, withKnowledge.Response)
		})
	}
}

func TestFollowUpMentionsRecentTopic(t *testing.T) {
	_, d := Transition(StateFollowUp, query.IntentGeneral, TurnContext{RecentTopic: "our products"})
	assert.Contains(t, d.Instruction, "our products")
	assert.Empty(t, d.Response)

	_, plain := Transition(StateFollowUp, query.IntentGeneral, TurnContext{})
	assert.Contains(t, plain.Instruction, "NovaTech")
}

func TestEveryStateHasNext(t *testing.T) {
	for _, st := range States {
		_, ok := nextState[st]
		assert.True(t, ok, "state %s has no successor", st)
	}
	assert.True(t, StateClosing.Terminal())
	assert.False(t, StateFollowUp.Terminal())
}
