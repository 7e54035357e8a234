// ABOUTME: HTTP client for the remote authority's /auth endpoints
// ABOUTME: Stateless login/register/refresh/logout returning complete sessions

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/2389/railboard/internal/session"
)

// maxErrorBodySize bounds how much of an error response we read.
const maxErrorBodySize = 64 * 1024

// Gateway performs authentication calls against the remote authority.
// It is stateless and safe for concurrent use.
type Gateway struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New creates a gateway for the service at baseURL. Pass nil logger for
// default.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With("component", "gateway"),
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges email and password for a complete session.
func (g *Gateway) Login(ctx context.Context, email, password string) (session.Session, error) {
	return g.sessionCall(ctx, "/auth/login", credentialsRequest{Email: email, Password: password})
}

// Register creates an account and returns a complete session.
func (g *Gateway) Register(ctx context.Context, email, password string) (session.Session, error) {
	return g.sessionCall(ctx, "/auth/register", credentialsRequest{Email: email, Password: password})
}

// Refresh exchanges a refresh token for a fresh session. An *AuthError
// here means the refresh token is expired or revoked.
func (g *Gateway) Refresh(ctx context.Context, refreshToken string) (session.Session, error) {
	return g.sessionCall(ctx, "/auth/refresh", refreshRequest{RefreshToken: refreshToken})
}

// Logout notifies the server that the refresh token should be revoked.
// Best-effort: the caller must clear local state regardless of outcome.
func (g *Gateway) Logout(ctx context.Context, refreshToken string) error {
	resp, err := g.post(ctx, "/auth/logout", refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return &AuthError{StatusCode: resp.StatusCode, Message: ErrorMessage(body)}
	}
	return nil
}

// sessionCall posts to an auth endpoint and decodes a full session
// response.
func (g *Gateway) sessionCall(ctx context.Context, path string, payload any) (session.Session, error) {
	resp, err := g.post(ctx, path, payload)
	if err != nil {
		return session.Session{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		g.logger.Debug("auth call rejected", "path", path, "status", resp.StatusCode)
		return session.Session{}, &AuthError{StatusCode: resp.StatusCode, Message: ErrorMessage(body)}
	}

	var sess session.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return session.Session{}, &NetworkError{Op: path, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if sess.AccessToken == "" || sess.RefreshToken == "" {
		return session.Session{}, &NetworkError{Op: path, Err: fmt.Errorf("incomplete session in response")}
	}

	sess.AccessExpiry = accessExpiry(sess.AccessToken)
	return sess, nil
}

func (g *Gateway) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &NetworkError{Op: path, Err: fmt.Errorf("encoding request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{Op: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: path, Err: err}
	}
	return resp, nil
}

// accessExpiry pulls the exp claim out of the access token without
// verifying the signature. Verification is the server's job; the client
// only uses the expiry for display and logging.
func accessExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
