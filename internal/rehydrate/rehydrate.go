// ABOUTME: Startup rehydration of session state from durable storage
// ABOUTME: Validates the persisted refresh token server-side before trusting it

package rehydrate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/2389/railboard/internal/session"
)

// CredentialLoader reads the persisted credential. Implemented by the
// keyring; Load maps every failure to nil.
type CredentialLoader interface {
	Load(ctx context.Context) *session.Credential
}

// Refresher exchanges a refresh token for a fresh session. Implemented
// by the auth gateway.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (session.Session, error)
}

// Rehydrator reconstructs session state at process start. It runs
// exactly once; repeat calls are no-ops.
type Rehydrator struct {
	loader    CredentialLoader
	refresher Refresher
	store     *session.Store
	logger    *slog.Logger
	once      sync.Once
}

// New creates a rehydrator. Pass nil logger for default.
func New(loader CredentialLoader, refresher Refresher, store *session.Store, logger *slog.Logger) *Rehydrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rehydrator{
		loader:    loader,
		refresher: refresher,
		store:     store,
		logger:    logger.With("component", "rehydrate"),
	}
}

// Run loads the persisted credential, validates it against the remote
// authority, and resolves the store's rehydrated flag. A stale or
// revoked refresh token results in a clean logged-out state, never a
// half-authenticated one. The rehydrated flag is set in every outcome.
func (r *Rehydrator) Run(ctx context.Context) {
	r.once.Do(func() { r.run(ctx) })
}

func (r *Rehydrator) run(ctx context.Context) {
	defer r.store.MarkRehydrated()

	cred := r.loader.Load(ctx)
	if cred == nil {
		r.logger.Debug("no persisted credential")
		return
	}

	sess, err := r.refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		// Clearing the store also erases the stale credential.
		r.logger.Info("persisted credential rejected, starting logged out", "error", err)
		r.store.Clear()
		return
	}

	r.store.Set(sess)
	r.logger.Info("session rehydrated", "user_id", sess.User.ID)
}
