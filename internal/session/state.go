package session

import "github.com/wolfman30/novatech-assistant/internal/query"

// State is a conversation state.
type State string

const (
	StateGreeting          State = "greeting"
	StateQuestionAnswering State = "question_answering"
	StateProductInquiry    State = "product_inquiry"
	StateLeadershipInfo    State = "leadership_info"
	StateCompanyInfo       State = "company_info"
	StateFollowUp          State = "follow_up"
	StateClosing           State = "closing"
)

// States lists every state in flow order.
var States = []State{
	StateGreeting,
	StateQuestionAnswering,
	StateProductInquiry,
	StateLeadershipInfo,
	StateCompanyInfo,
	StateFollowUp,
	StateClosing,
}

// Terminal reports whether no intent other than greeting leaves the state.
func (s State) Terminal() bool { return s == StateClosing }

// TurnContext carries what a handler needs to know about the current turn.
type TurnContext struct {
	HasKnowledge  bool
	ResponseCount int
	RecentTopic   string
}

// Directive tells the reply builder how to answer the turn. A non-empty
// Response is a complete canned reply and needs no model call.
type Directive struct {
	Handler      State  `json:"handler"`
	Response     string `json:"response,omitempty"`
	Instruction  string `json:"instruction"`
	UseKnowledge bool   `json:"use_knowledge"`
}

var greetings = []string{
	"Hello! Welcome to NovaTech Solutions. How can I help you today?",
	"Hi there! I'm your NovaTech assistant. What would you like to know?",
	"Good day! I'm here to help with any questions about NovaTech. What's on your mind?",
}

var closings = []string{
	"Thank you for chatting with me! Feel free to reach out if you have more questions about NovaTech.",
	"It's been great helping you! Don't hesitate to ask if you need more information later.",
	"Thanks for your time! I'm here whenever you need to know more about NovaTech Solutions.",
}

const (
	productsNoContext   = "I'd be happy to tell you about our products! We offer a unified software suite including CRM, HR, helpdesk and analytics solutions. Which product would you like to know more about?"
	leadershipNoContext = "I can tell you about our leadership team! We have experienced leaders across every department. Who specifically would you like to know about?"
	companyNoContext    = "NovaTech Solutions builds intelligent business software for growing companies. What aspect of the company would you like to learn more about?"
)

var nextState = map[State]State{
	StateGreeting:          StateQuestionAnswering,
	StateQuestionAnswering: StateQuestionAnswering,
	StateProductInquiry:    StateFollowUp,
	StateLeadershipInfo:    StateFollowUp,
	StateCompanyInfo:       StateFollowUp,
	StateFollowUp:          StateQuestionAnswering,
	StateClosing:           StateClosing,
}

// Transition picks the handler for the latest intent and returns the state
// the conversation moves to along with the handler's directive. It is pure.
func Transition(current State, intent query.Intent, tc TurnContext) (State, Directive) {
	handler := handlerFor(current, intent)
	return nextState[handler], directive(handler, tc)
}

func handlerFor(current State, intent query.Intent) State {
	switch intent {
	case query.IntentFarewell:
		return StateClosing
	case query.IntentGreeting:
		return StateGreeting
	case query.IntentProducts:
		return StateProductInquiry
	case query.IntentLeadership:
		return StateLeadershipInfo
	case query.IntentCompanyInfo, query.IntentContactInfo, query.IntentPartners:
		return StateCompanyInfo
	}
	switch current {
	case StateClosing:
		return StateClosing
	case StateFollowUp:
		return StateFollowUp
	}
	return StateQuestionAnswering
}

func directive(handler State, tc TurnContext) Directive {
	d := Directive{Handler: handler}
	switch handler {
	case StateGreeting:
		d.Response = pick(greetings, tc.ResponseCount)
		d.Instruction = "Greet the user warmly and offer help with NovaTech questions."
	case StateClosing:
		d.Response = pick(closings, tc.ResponseCount)
		d.Instruction = "Close the conversation politely."
	case StateProductInquiry:
		d.UseKnowledge = true
		d.Instruction = "Answer the product question using the NovaTech product information provided."
		if !tc.HasKnowledge {
			d.Response = productsNoContext
		}
	case StateLeadershipInfo:
		d.UseKnowledge = true
		d.Instruction = "Answer the leadership question using the NovaTech leadership information provided."
		if !tc.HasKnowledge {
			d.Response = leadershipNoContext
		}
	case StateCompanyInfo:
		d.UseKnowledge = true
		d.Instruction = "Answer the question about NovaTech using the company information provided."
		if !tc.HasKnowledge {
			d.Response = companyNoContext
		}
	case StateFollowUp:
		d.UseKnowledge = tc.HasKnowledge
		topic := tc.RecentTopic
		if topic == "" {
			topic = "NovaTech"
		}
		d.Instruction = "Answer the follow-up question, then ask whether there is anything else they would like to know about " + topic + "."
	default:
		d.UseKnowledge = tc.HasKnowledge
		d.Instruction = "Answer the question helpfully. If the information provided does not cover it, say so and offer to help with products, leadership or company information."
	}
	return d
}

func pick(texts []string, n int) string {
	if n < 0 {
		n = -n
	}
	return texts[n%len(texts)]
}
