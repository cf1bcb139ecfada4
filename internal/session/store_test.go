package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/wolfman30/novatech-assistant/internal/query"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(clock *fakeClock) *Store {
	return NewStore(Options{Timeout: 300 * time.Second, MaxHistory: 4, Now: clock.Now})
}

func TestSessionLifecycle(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	sess, created := store.GetOrCreate("abc", "u1")
	require.True(t, created)
	assert.Equal(t, StateGreeting, sess.State())

	sess.AddMessage(RoleUser, "hi")
	clock.Advance(299 * time.Second)
	got, ok := store.Get("abc")
	require.True(t, ok)
	assert.Same(t, sess, got)

	clock.Advance(2 * time.Second)
	_, ok = store.Get("abc")
	assert.False(t, ok, "session idle past timeout must be evicted")
	assert.Equal(t, 0, store.Len())

	fresh, created := store.GetOrCreate("abc", "u1")
	assert.True(t, created)
	assert.NotSame(t, sess, fresh)
	assert.Equal(t, StateGreeting, fresh.State())
	assert.Empty(t, fresh.History())
}

func TestIsTimedOut(t *testing.T) {
	tests := []struct {
		name string
		idle time.Duration
		want bool
	}{
		{"fresh", 0, false},
		{"just before timeout", 300*time.Second - time.Millisecond, false},
		{"exactly at timeout", 300 * time.Second, false},
		{"just past timeout", 300*time.Second + time.Millisecond, true},
		{"long idle", time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			sess := newTestStore(clock).Create("abc", "")
			clock.Advance(tt.idle)
			assert.Equal(t, tt.want, sess.IsTimedOut())
		})
	}
}

func TestIsTimedOutProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		timeout := time.Duration(rapid.Int64Range(1, 3600).Draw(t, "timeout_s")) * time.Second
		idle := time.Duration(rapid.Int64Range(0, 7200_000).Draw(t, "idle_ms")) * time.Millisecond

		clock := newFakeClock()
		sess := NewStore(Options{Timeout: timeout, Now: clock.Now}).Create("s", "")
		clock.Advance(idle)
		if got, want := sess.IsTimedOut(), idle > timeout; got != want {
			t.Fatalf("idle %s timeout %s: IsTimedOut=%v want %v", idle, timeout, got, want)
		}
	})
}

func TestActivityExtendsSession(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)
	sess := store.Create("abc", "")

	for i := 0; i < 5; i++ {
		clock.Advance(200 * time.Second)
		sess.AddMessage(RoleUser, "still here")
	}
	_, ok := store.Get("abc")
	assert.True(t, ok)
}

func TestEvictIfExpired(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)
	store.Create("a", "")
	store.Create("b", "")

	assert.False(t, store.EvictIfExpired("a"))
	assert.False(t, store.EvictIfExpired("missing"))

	clock.Advance(301 * time.Second)
	store.Create("b", "")
	assert.True(t, store.EvictIfExpired("a"))
	assert.False(t, store.EvictIfExpired("b"))
	assert.Equal(t, 1, store.Len())
}

func TestHistoryTruncation(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)
	sess := store.Create("abc", "")

	for i := 1; i <= 6; i++ {
		sess.AddMessage(RoleUser, fmt.Sprintf("m%d", i))
	}

	history := sess.History()
	require.Len(t, history, 4)
	assert.Equal(t, "m3", history[0].Text)
	assert.Equal(t, "m6", history[3].Text)
	assert.Equal(t, 6, sess.ResponseCount())
}

func TestHistoryNeverExceedsLimit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 10).Draw(t, "limit")
		n := rapid.IntRange(0, 40).Draw(t, "messages")

		store := NewStore(Options{MaxHistory: limit})
		sess := store.Create("s", "")
		for i := 0; i < n; i++ {
			sess.AddMessage(RoleUser, fmt.Sprintf("m%d", i))
		}

		history := sess.History()
		if len(history) > limit {
			t.Fatalf("history has %d entries, limit %d", len(history), limit)
		}
		if n > 0 && history[len(history)-1].Text != fmt.Sprintf("m%d", n-1) {
			t.Fatalf("newest message lost: %v", history)
		}
	})
}

func TestRecentContext(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)
	sess := store.Create("abc", "")

	assert.Equal(t, "", sess.RecentContext(5))

	sess.AddMessage(RoleUser, "what products do you sell")
	sess.SetState(StateFollowUp)
	sess.AddMessage(RoleAssistant, "NovaCRM and NovaHR")
	sess.AddMessage(RoleUser, "pricing?")

	assert.Equal(t, "User: what products do you sell\nAssistant: NovaCRM and NovaHR\nUser: pricing?", sess.RecentContext(5))
	assert.Equal(t, "Assistant: NovaCRM and NovaHR\nUser: pricing?", sess.RecentContext(2))
	assert.Equal(t, "", sess.RecentContext(0))

	history := sess.History()
	assert.Equal(t, StateGreeting, history[0].State)
	assert.Equal(t, StateFollowUp, history[1].State)
	assert.Equal(t, "our products", sess.RecentTopic())
}

func TestStatsAndSummary(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	a := store.Create("a", "user-a")
	a.RecordQuery("who is the ceo", query.IntentLeadership)
	a.SetState(StateFollowUp)
	a.AddMessage(RoleUser, "who is the ceo")

	clock.Advance(time.Minute)
	b := store.Create("b", "")
	b.AddMessage(RoleUser, "hi")

	st, err := store.Stats("a")
	require.NoError(t, err)
	assert.Equal(t, "user-a", st.UserID)
	assert.Equal(t, StateFollowUp, st.CurrentState)
	assert.Equal(t, query.IntentLeadership, st.LastIntent)
	assert.Equal(t, 1, st.MessageCount)

	_, err = store.Stats("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	sum := store.Summary()
	assert.Equal(t, 2, sum.TotalActive)
	assert.Equal(t, 1, sum.ByState[StateFollowUp])
	assert.Equal(t, 1, sum.ByState[StateGreeting])
	require.Len(t, sum.Conversations, 2)
	assert.Equal(t, "b", sum.Conversations[0].SessionID)

	clock.Advance(299 * time.Second)
	sum = store.Summary()
	assert.Equal(t, 1, sum.TotalActive)
	assert.Equal(t, 2, sum.TotalSessions)

	_, ok := store.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())
	assert.True(t, store.Delete("b"))
	assert.False(t, store.Delete("b"))
}

func TestClear(t *testing.T) {
	store := NewStore(Options{})
	store.Create("a", "")
	store.Create("b", "")
	assert.Equal(t, 2, store.Clear())
	assert.Equal(t, 0, store.Len())
}

func TestLockSerializesTurns(t *testing.T) {
	store := NewStore(Options{MaxHistory: 1000})
	sess := store.Create("abc", "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock := store.Lock("abc")
			defer unlock()
			sess.AddMessage(RoleUser, fmt.Sprintf("q%d", i))
			sess.AddMessage(RoleAssistant, fmt.Sprintf("a%d", i))
		}(i)
	}
	wg.Wait()

	history := sess.History()
	require.Len(t, history, 100)
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, RoleUser, history[i].Role)
		assert.Equal(t, "a"+history[i].Text[1:], history[i+1].Text, "turns interleaved")
	}
}

func TestLockIsPerSession(t *testing.T) {
	store := NewStore(Options{})

	unlockAlice := store.Lock("alice")
	acquired := make(chan struct{})
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("user-%d", i)
		go func() {
			unlock := store.Lock(id)
			unlock()
			acquired <- struct{}{}
		}()
	}
	for i := 0; i < 100; i++ {
		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatalf("turn for another session waited on alice's lock")
		}
	}

	second := make(chan struct{})
	go func() {
		unlock := store.Lock("alice")
		unlock()
		close(second)
	}()
	select {
	case <-second:
		t.Fatalf("second alice turn ran while the first held the lock")
	case <-time.After(20 * time.Millisecond):
	}
	unlockAlice()
	<-second

	store.turnsMu.Lock()
	defer store.turnsMu.Unlock()
	assert.Empty(t, store.turns, "idle lock entries must be dropped")
}
