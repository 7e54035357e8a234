// ABOUTME: Session, user, and persisted-credential types shared across the client core
// ABOUTME: Wire shapes match the /auth/* endpoints of the schedule service

package session

import "time"

// AuthUser is the minimal user profile issued by the server.
// Role is an opaque string consumed by callers for capability gating;
// it is immutable for the lifetime of a session.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session is a complete set of credentials. The three fields are always
// updated together; a session is either fully present or fully absent.
type Session struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	User         AuthUser `json:"user"`

	// AccessExpiry is the access token's exp claim, parsed client-side for
	// display and logging. Zero when the claim is absent or unparseable.
	AccessExpiry time.Time `json:"-"`
}

// Credential is the durable subset of a Session written to secure storage.
// The access token is deliberately never persisted: it is short-lived and
// re-derived via refresh at startup.
type Credential struct {
	RefreshToken string   `json:"refreshToken"`
	User         AuthUser `json:"user"`
}

// Credential extracts the durable subset of the session.
func (s Session) Credential() Credential {
	return Credential{RefreshToken: s.RefreshToken, User: s.User}
}

// State is a snapshot of the store. Session is nil when logged out.
type State struct {
	Session    *Session
	Rehydrated bool
}

// HasSession reports whether a complete session is present.
func (s State) HasSession() bool {
	return s.Session != nil
}
