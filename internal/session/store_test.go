// ABOUTME: Tests for the session store's atomic updates and subscriber fan-out
// ABOUTME: Covers replace/clear atomicity, rehydration gating, and soft persistence

package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPersister struct {
	mu     sync.Mutex
	saved  []Credential
	erases int
	fail   bool
}

func (p *recordingPersister) Save(_ context.Context, cred Credential) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("disk on fire")
	}
	p.saved = append(p.saved, cred)
	return nil
}

func (p *recordingPersister) Erase(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("disk on fire")
	}
	p.erases++
	return nil
}

func makeSession(suffix string) Session {
	return Session{
		AccessToken:  "access-" + suffix,
		RefreshToken: "refresh-" + suffix,
		User:         AuthUser{ID: "user-" + suffix, Email: suffix + "@rail.example.com", Role: "user"},
	}
}

func TestStore_SetAndGet(t *testing.T) {
	s := NewStore(nil, nil)

	st := s.Get()
	assert.False(t, st.HasSession())
	assert.False(t, st.Rehydrated)

	s.Set(makeSession("a"))

	st = s.Get()
	require.True(t, st.HasSession())
	assert.Equal(t, "access-a", st.Session.AccessToken)
	assert.Equal(t, "refresh-a", st.Session.RefreshToken)
	assert.Equal(t, "user-a", st.Session.User.ID)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore(nil, nil)
	s.Set(makeSession("a"))

	st := s.Get()
	st.Session.AccessToken = "tampered"

	assert.Equal(t, "access-a", s.Get().Session.AccessToken)
}

func TestStore_SubscriberSeesCompleteSession(t *testing.T) {
	s := NewStore(nil, nil)
	s.Set(makeSession("old"))

	var observed []State
	unsub := s.Subscribe(func(st State) {
		observed = append(observed, st)
	})
	defer unsub()

	s.Set(makeSession("new"))

	require.Len(t, observed, 1)
	st := observed[0]
	require.True(t, st.HasSession())
	// All three fields belong to the new session; no interleaving with the old.
	assert.Equal(t, "access-new", st.Session.AccessToken)
	assert.Equal(t, "refresh-new", st.Session.RefreshToken)
	assert.Equal(t, "user-new", st.Session.User.ID)
}

func TestStore_ClearNotifiesWithEmptyState(t *testing.T) {
	s := NewStore(nil, nil)
	s.Set(makeSession("a"))

	var observed []State
	unsub := s.Subscribe(func(st State) {
		observed = append(observed, st)
	})
	defer unsub()

	s.Clear()

	require.Len(t, observed, 1)
	assert.False(t, observed[0].HasSession())
}

func TestStore_MarkRehydratedIsIdempotent(t *testing.T) {
	s := NewStore(nil, nil)

	notifications := 0
	unsub := s.Subscribe(func(State) { notifications++ })
	defer unsub()

	s.MarkRehydrated()
	s.MarkRehydrated()
	s.MarkRehydrated()

	assert.True(t, s.Get().Rehydrated)
	assert.Equal(t, 1, notifications, "repeat calls must not notify again")
}

func TestStore_RehydratedSurvivesClear(t *testing.T) {
	s := NewStore(nil, nil)
	s.MarkRehydrated()
	s.Set(makeSession("a"))
	s.Clear()

	st := s.Get()
	assert.False(t, st.HasSession())
	assert.True(t, st.Rehydrated, "rehydrated never reverts")
}

func TestStore_PersistsCredentialOnSet(t *testing.T) {
	p := &recordingPersister{}
	s := NewStore(p, nil)

	s.Set(makeSession("a"))

	require.Len(t, p.saved, 1)
	assert.Equal(t, "refresh-a", p.saved[0].RefreshToken)
	assert.Equal(t, "user-a", p.saved[0].User.ID)
}

func TestStore_ErasesCredentialOnClear(t *testing.T) {
	p := &recordingPersister{}
	s := NewStore(p, nil)

	s.Set(makeSession("a"))
	s.Clear()

	assert.Equal(t, 1, p.erases)
}

func TestStore_SetSucceedsWhenPersistenceFails(t *testing.T) {
	p := &recordingPersister{fail: true}
	s := NewStore(p, nil)

	s.Set(makeSession("a"))

	st := s.Get()
	require.True(t, st.HasSession())
	assert.Equal(t, "access-a", st.Session.AccessToken,
		"in-memory session must remain usable after a storage failure")
}

func TestStore_Unsubscribe(t *testing.T) {
	s := NewStore(nil, nil)

	calls := 0
	unsub := s.Subscribe(func(State) { calls++ })

	s.Set(makeSession("a"))
	unsub()
	s.Set(makeSession("b"))

	assert.Equal(t, 1, calls)
}

func TestStore_ConcurrentReadersAndWriters(t *testing.T) {
	s := NewStore(nil, nil)
	unsub := s.Subscribe(func(st State) {
		if st.Session != nil && st.Session.AccessToken == "" {
			t.Error("observed partial session")
		}
	})
	defer unsub()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set(makeSession("x"))
				s.Clear()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				st := s.Get()
				if st.Session != nil && st.Session.RefreshToken == "" {
					t.Error("observed partial session")
				}
			}
		}()
	}
	wg.Wait()
}
