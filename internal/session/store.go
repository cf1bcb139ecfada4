package session

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session: not found")

const (
	DefaultTimeout    = 300 * time.Second
	DefaultMaxHistory = 20
)

// Options configures a Store.
type Options struct {
	Timeout    time.Duration
	MaxHistory int
	Now        func() time.Time
	Logger     *slog.Logger
}

// Store owns every live session. Expired sessions are evicted lazily on
// lookup; nothing sweeps them in the background.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	turnsMu sync.Mutex
	turns   map[string]*turnLock

	timeout    time.Duration
	maxHistory int
	now        func() time.Time
	logger     *slog.Logger
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	s := &Store{
		sessions:   make(map[string]*Session),
		turns:      make(map[string]*turnLock),
		timeout:    opts.Timeout,
		maxHistory: opts.MaxHistory,
		now:        opts.Now,
		logger:     opts.Logger,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.maxHistory <= 0 {
		s.maxHistory = DefaultMaxHistory
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Create starts a fresh session, replacing any existing one with the same id.
func (s *Store) Create(id, userID string) *Session {
	sess := newSession(id, userID, s.timeout, s.maxHistory, s.now)
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	s.logger.Debug("session created", "session_id", id)
	return sess
}

// Get returns a live session. A timed out session is evicted and reported
// as missing.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if sess.IsTimedOut() {
		s.evict(id, sess)
		return nil, false
	}
	return sess, true
}

// GetOrCreate returns the live session for id, creating it when missing or
// expired. created reports whether a new session was started.
func (s *Store) GetOrCreate(id, userID string) (sess *Session, created bool) {
	if sess, ok := s.Get(id); ok {
		return sess, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok && !existing.IsTimedOut() {
		return existing, false
	}
	sess = newSession(id, userID, s.timeout, s.maxHistory, s.now)
	s.sessions[id] = sess
	s.logger.Debug("session created", "session_id", id)
	return sess, true
}

// EvictIfExpired removes the session if it has timed out.
func (s *Store) EvictIfExpired(id string) bool {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || !sess.IsTimedOut() {
		return false
	}
	return s.evict(id, sess)
}

// evict deletes id only if it still maps to sess.
func (s *Store) evict(id string, sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[id]; !ok || current != sess {
		return false
	}
	delete(s.sessions, id)
	s.logger.Debug("session expired", "session_id", id)
	return true
}

// Delete removes a session regardless of its age.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Clear removes every session and returns how many there were.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sessions)
	s.sessions = make(map[string]*Session)
	return n
}

// Len counts stored sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// turnLock is a per-session mutex shared by the turns waiting on it.
type turnLock struct {
	mu   sync.Mutex
	refs int
}

// Lock serializes turns for id and returns the unlock func. Each id has its
// own mutex, dropped once no turn holds or waits on it.
func (s *Store) Lock(id string) func() {
	s.turnsMu.Lock()
	l, ok := s.turns[id]
	if !ok {
		l = &turnLock{}
		s.turns[id] = l
	}
	l.refs++
	s.turnsMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.turnsMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.turns, id)
		}
		s.turnsMu.Unlock()
	}
}

// Stats reports a live session's stats.
func (s *Store) Stats(id string) (Stats, error) {
	sess, ok := s.Get(id)
	if !ok {
		return Stats{}, ErrNotFound
	}
	return sess.Stats(), nil
}

// Summary describes the active sessions.
type Summary struct {
	TotalActive   int           `json:"total_active_conversations"`
	TotalSessions int           `json:"total_sessions"`
	ByState       map[State]int `json:"by_state"`
	Conversations []Stats       `json:"conversations"`
}

// Summary counts active sessions by state. Sessions are listed most
// recently active first.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	sum := Summary{TotalSessions: len(all), ByState: make(map[State]int), Conversations: []Stats{}}
	for _, sess := range all {
		if sess.IsTimedOut() {
			continue
		}
		st := sess.Stats()
		sum.TotalActive++
		sum.ByState[st.CurrentState]++
		sum.Conversations = append(sum.Conversations, st)
	}
	sort.Slice(sum.Conversations, func(i, j int) bool {
		a, b := sum.Conversations[i], sum.Conversations[j]
		if !a.LastActivity.Equal(b.LastActivity) {
			return a.LastActivity.After(b.LastActivity)
		}
		return a.SessionID < b.SessionID
	})
	return sum
}
