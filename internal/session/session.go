package session

import (
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/novatech-assistant/internal/query"
)

// Role identifies who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one history entry, stamped with the state the session was in.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	State     State     `json:"state"`
}

// Session is a single rolling conversation. It is safe for concurrent use;
// callers serialize whole turns with Store.Lock.
type Session struct {
	mu sync.Mutex

	id            string
	userID        string
	state         State
	history       []Message
	lastQuery     string
	lastIntent    query.Intent
	responseCount int
	createdAt     time.Time
	lastActivity  time.Time

	timeout    time.Duration
	maxHistory int
	now        func() time.Time
}

func newSession(id, userID string, timeout time.Duration, maxHistory int, now func() time.Time) *Session {
	ts := now()
	return &Session{
		id:           id,
		userID:       userID,
		state:        StateGreeting,
		createdAt:    ts,
		lastActivity: ts,
		timeout:      timeout,
		maxHistory:   maxHistory,
		now:          now,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) UserID() string { return s.userID }

// State returns the current conversation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState moves the session to st.
func (s *Session) SetState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// RecordQuery stores the latest user query and its classified intent.
func (s *Session) RecordQuery(text string, intent query.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = text
	s.lastIntent = intent
}

// ResponseCount is the number of messages added so far.
func (s *Session) ResponseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.responseCount
}

// AddMessage appends a message stamped with the current state and time and
// drops the oldest entries beyond the history limit.
func (s *Session) AddMessage(role Role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	s.history = append(s.history, Message{Role: role, Text: text, Timestamp: ts, State: s.state})
	if s.maxHistory > 0 && len(s.history) > s.maxHistory {
		trimmed := make([]Message, s.maxHistory)
		copy(trimmed, s.history[len(s.history)-s.maxHistory:])
		s.history = trimmed
	}
	s.responseCount++
	s.lastActivity = ts
}

// RecentContext renders the last n messages oldest first, one
// "User: ..." or "Assistant: ..." line each.
func (s *Session) RecentContext(n int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 || n <= 0 {
		return ""
	}
	start := len(s.history) - n
	if start < 0 {
		start = 0
	}
	lines := make([]string, 0, len(s.history)-start)
	for _, msg := range s.history[start:] {
		speaker := "User"
		if msg.Role == RoleAssistant {
			speaker = "Assistant"
		}
		lines = append(lines, speaker+": "+msg.Text)
	}
	return strings.Join(lines, "\n")
}

// IsTimedOut reports whether the session has been idle longer than its timeout.
func (s *Session) IsTimedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timedOutLocked()
}

func (s *Session) timedOutLocked() bool {
	return s.timeout > 0 && s.now().Sub(s.lastActivity) > s.timeout
}

// History returns a copy of the retained messages.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.history...)
}

var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"our products", []string{"crm", "hr", "helpdesk", "desk", "analytics", "product"}},
	{"our leadership team", []string{"ceo", "cto", "founder", "leader"}},
	{"NovaTech", []string{"company", "business", "novatech"}},
}

// RecentTopic names what the last three messages were about, or "" when
// nothing recognisable was discussed.
func (s *Session) RecentTopic() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.history) - 3
	if start < 0 {
		start = 0
	}
	for i := len(s.history) - 1; i >= start; i-- {
		text := strings.ToLower(s.history[i].Text)
		for _, t := range topicKeywords {
			for _, kw := range t.keywords {
				if strings.Contains(text, kw) {
					return t.topic
				}
			}
		}
	}
	return ""
}

// Stats is the externally visible summary of a session.
type Stats struct {
	SessionID       string       `json:"session_id"`
	UserID          string       `json:"user_id,omitempty"`
	CurrentState    State        `json:"current_state"`
	MessageCount    int          `json:"message_count"`
	ResponseCount   int          `json:"response_count"`
	LastQuery       string       `json:"last_query,omitempty"`
	LastIntent      query.Intent `json:"last_intent,omitempty"`
	StartTime       time.Time    `json:"start_time"`
	LastActivity    time.Time    `json:"last_activity"`
	DurationMinutes float64      `json:"duration_minutes"`
}

// Stats snapshots the session.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		SessionID:       s.id,
		UserID:          s.userID,
		CurrentState:    s.state,
		MessageCount:    len(s.history),
		ResponseCount:   s.responseCount,
		LastQuery:       s.lastQuery,
		LastIntent:      s.lastIntent,
		StartTime:       s.createdAt,
		LastActivity:    s.lastActivity,
		DurationMinutes: s.lastActivity.Sub(s.createdAt).Minutes(),
	}
}
