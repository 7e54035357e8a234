// ABOUTME: Tests for startup session rehydration
// ABOUTME: Covers absent, valid, and revoked persisted credentials

package rehydrate

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/railboard/internal/gateway"
	"github.com/2389/railboard/internal/session"
)

type fakeLoader struct {
	cred *session.Credential
}

func (f *fakeLoader) Load(context.Context) *session.Credential {
	return f.cred
}

type fakeRefresher struct {
	calls atomic.Int64
	sess  session.Session
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context, refreshToken string) (session.Session, error) {
	f.calls.Add(1)
	if f.err != nil {
		return session.Session{}, f.err
	}
	return f.sess, nil
}

type countingPersister struct {
	saves  atomic.Int64
	erases atomic.Int64
}

func (p *countingPersister) Save(context.Context, session.Credential) error {
	p.saves.Add(1)
	return nil
}

func (p *countingPersister) Erase(context.Context) error {
	p.erases.Add(1)
	return nil
}

func storedCredential() *session.Credential {
	return &session.Credential{
		RefreshToken: "refresh-stored",
		User:         session.AuthUser{ID: "user-1", Email: "rider@rail.example.com", Role: "user"},
	}
}

func TestRehydrator_NoCredential(t *testing.T) {
	store := session.NewStore(nil, nil)
	refresher := &fakeRefresher{}
	r := New(&fakeLoader{}, refresher, store, nil)

	r.Run(t.Context())

	st := store.Get()
	assert.False(t, st.HasSession())
	assert.True(t, st.Rehydrated)
	assert.Equal(t, int64(0), refresher.calls.Load())
}

func TestRehydrator_ValidCredential(t *testing.T) {
	store := session.NewStore(nil, nil)
	refresher := &fakeRefresher{sess: session.Session{
		AccessToken:  "access-fresh",
		RefreshToken: "refresh-fresh",
		User:         session.AuthUser{ID: "user-1", Email: "rider@rail.example.com", Role: "user"},
	}}
	r := New(&fakeLoader{cred: storedCredential()}, refresher, store, nil)

	r.Run(t.Context())

	st := store.Get()
	require.True(t, st.HasSession())
	assert.True(t, st.Rehydrated)
	assert.Equal(t, "access-fresh", st.Session.AccessToken,
		"access token is re-derived via refresh, never loaded from storage")
	assert.Equal(t, "refresh-fresh", st.Session.RefreshToken)
}

func TestRehydrator_RevokedCredential(t *testing.T) {
	persister := &countingPersister{}
	store := session.NewStore(persister, nil)
	refresher := &fakeRefresher{err: &gateway.AuthError{StatusCode: 401, Message: "Refresh token revoked"}}
	r := New(&fakeLoader{cred: storedCredential()}, refresher, store, nil)

	r.Run(t.Context())

	st := store.Get()
	assert.False(t, st.HasSession(), "revoked token must not leave a half-authenticated state")
	assert.True(t, st.Rehydrated)
	assert.Equal(t, int64(1), persister.erases.Load(), "stale credential is erased")
}

func TestRehydrator_NetworkFailureStartsLoggedOut(t *testing.T) {
	store := session.NewStore(nil, nil)
	refresher := &fakeRefresher{err: &gateway.NetworkError{Op: "/auth/refresh", Err: context.DeadlineExceeded}}
	r := New(&fakeLoader{cred: storedCredential()}, refresher, store, nil)

	r.Run(t.Context())

	st := store.Get()
	assert.False(t, st.HasSession())
	assert.True(t, st.Rehydrated)
}

func TestRehydrator_RunsOnce(t *testing.T) {
	store := session.NewStore(nil, nil)
	refresher := &fakeRefresher{sess: session.Session{
		AccessToken:  "access-fresh",
		RefreshToken: "refresh-fresh",
		User:         session.AuthUser{ID: "user-1", Email: "rider@rail.example.com", Role: "user"},
	}}
	r := New(&fakeLoader{cred: storedCredential()}, refresher, store, nil)

	r.Run(t.Context())
	r.Run(t.Context())

	assert.Equal(t, int64(1), refresher.calls.Load())
}
