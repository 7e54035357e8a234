// ABOUTME: In-memory session store with atomic replace/clear and subscriber fan-out
// ABOUTME: Sole writer of session state; owns the best-effort persistence side effect

package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Persister is the durable-storage hook invoked by the store on every
// session change. Implementations must tolerate repeated erases.
type Persister interface {
	Save(ctx context.Context, cred Credential) error
	Erase(ctx context.Context) error
}

// Store holds session state and notifies subscribers on every change.
// Mutations are applied under a single mutex and observers receive
// immutable snapshots, so no subscriber ever sees a half-updated session.
type Store struct {
	mu        sync.Mutex
	session   *Session
	rehydrate bool
	subs      map[string]func(State)

	persister Persister
	logger    *slog.Logger
}

// NewStore creates a session store. The persister may be nil, in which
// case session changes are not written to durable storage. Pass nil
// logger for default.
func NewStore(persister Persister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		subs:      make(map[string]func(State)),
		persister: persister,
		logger:    logger.With("component", "session"),
	}
}

// Get returns a snapshot of the current state. The returned session is a
// copy; callers cannot mutate the store through it.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Set atomically replaces the session, persists the durable credential
// best-effort, and notifies subscribers with the new state.
func (s *Store) Set(sess Session) {
	s.mu.Lock()
	copied := sess
	s.session = &copied
	snap := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.Save(context.Background(), sess.Credential()); err != nil {
			// Persistence is an optimization, not a correctness requirement.
			s.logger.Warn("failed to persist credential", "error", err)
		}
	}

	s.logger.Debug("session set", "user_id", sess.User.ID)
	s.notify(subs, snap)
}

// Clear atomically removes the session, erases persisted credentials
// best-effort, and notifies subscribers. Clearing an already-empty store
// is a no-op apart from the erase.
func (s *Store) Clear() {
	s.mu.Lock()
	s.session = nil
	snap := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.Erase(context.Background()); err != nil {
			s.logger.Warn("failed to erase persisted credential", "error", err)
		}
	}

	s.logger.Debug("session cleared")
	s.notify(subs, snap)
}

// MarkRehydrated flips the rehydration gate. Idempotent; the flag never
// reverts for the lifetime of the store.
func (s *Store) MarkRehydrated() {
	s.mu.Lock()
	if s.rehydrate {
		s.mu.Unlock()
		return
	}
	s.rehydrate = true
	snap := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	s.logger.Debug("rehydration complete", "has_session", snap.HasSession())
	s.notify(subs, snap)
}

// Subscribe registers fn to be called synchronously with a state snapshot
// on every change. Returns an unsubscribe function. The callback must not
// call back into the store's mutating methods from the same goroutine
// while handling a notification sourced from them.
func (s *Store) Subscribe(fn func(State)) func() {
	id := uuid.New().String()

	s.mu.Lock()
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// snapshotLocked builds an immutable state snapshot. Must be called with
// mu held.
func (s *Store) snapshotLocked() State {
	st := State{Rehydrated: s.rehydrate}
	if s.session != nil {
		copied := *s.session
		st.Session = &copied
	}
	return st
}

// subscribersLocked copies the subscriber list so notification happens
// outside the lock. Must be called with mu held.
func (s *Store) subscribersLocked() []func(State) {
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return fns
}

func (s *Store) notify(subs []func(State), snap State) {
	for _, fn := range subs {
		fn(snap)
	}
}
