// ABOUTME: Authenticated HTTP client with single-flight token refresh
// ABOUTME: Attaches bearer tokens, retries once after a shared refresh, forces logout on refresh failure

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/2389/railboard/internal/gateway"
	"github.com/2389/railboard/internal/session"
)

// refreshKey is the singleflight key; there is exactly one refresh
// operation system-wide.
const refreshKey = "refresh"

const maxBodySize = 4 * 1024 * 1024

// Refresher exchanges a refresh token for a fresh session. Implemented
// by the auth gateway.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (session.Session, error)
}

// Request describes an authenticated API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Client executes authenticated requests against the schedule service.
// Safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	store     *session.Store
	refresher Refresher
	group     singleflight.Group
	logger    *slog.Logger
}

// NewClient creates an authenticated client. The store supplies the
// access token for each call and receives the rotated session after a
// refresh. Pass nil logger for default.
func NewClient(baseURL string, timeout time.Duration, store *session.Store, refresher Refresher, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: timeout},
		store:     store,
		refresher: refresher,
		logger:    logger.With("component", "transport"),
	}
}

// Do executes the request with the current access token, refreshing once
// on an authorization failure and decoding a successful response into
// out (which may be nil).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	token := c.accessToken()

	status, body, err := c.send(ctx, req, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		newToken, refreshErr := c.refreshAfter(ctx, token)
		if refreshErr != nil {
			// Queued callers all observe the original authorization error.
			return &gateway.AuthError{StatusCode: status, Message: gateway.ErrorMessage(body)}
		}

		// Retry exactly once with the rotated token. A second 401 on the
		// same call is returned as-is, never retried again.
		status, body, err = c.send(ctx, req, newToken)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			c.logger.Warn("request rejected again after refresh", "path", req.Path)
			return &gateway.AuthError{StatusCode: status, Message: gateway.ErrorMessage(body)}
		}
	}

	if status >= 400 {
		return &gateway.AuthError{StatusCode: status, Message: gateway.ErrorMessage(body)}
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return &gateway.NetworkError{Op: req.Path, Err: fmt.Errorf("decoding response: %w", err)}
		}
	}
	return nil
}

// refreshAfter performs the single-flight refresh for a request that
// failed with staleToken attached. Concurrent callers share one flight
// and one outcome; callers that arrive after the token already rotated
// are handed the new token without a second refresh.
func (c *Client) refreshAfter(ctx context.Context, staleToken string) (string, error) {
	v, err, shared := c.group.Do(refreshKey, func() (any, error) {
		st := c.store.Get()
		if st.Session == nil {
			return nil, fmt.Errorf("no session to refresh")
		}
		if st.Session.AccessToken != staleToken {
			// Token already rotated while this caller was waiting.
			return st.Session.AccessToken, nil
		}

		// The refresh outlives the triggering caller: its cancellation
		// must not fail the siblings sharing this flight.
		sess, err := c.refresher.Refresh(context.WithoutCancel(ctx), st.Session.RefreshToken)
		if err != nil {
			c.logger.Info("refresh failed, clearing session", "error", err)
			c.store.Clear()
			return nil, err
		}

		c.store.Set(sess)
		c.logger.Debug("access token rotated", "user_id", sess.User.ID)
		return sess.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.Debug("joined in-flight refresh")
	}
	return v.(string), nil
}

// send executes one HTTP attempt and returns the status and body. A
// transport failure returns a *gateway.NetworkError; HTTP error statuses
// are returned to the caller as data, not errors, so the coordinator can
// branch on them.
func (c *Client) send(ctx context.Context, req Request, token string) (int, []byte, error) {
	var reqBody io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return 0, nil, &gateway.NetworkError{Op: req.Path, Err: fmt.Errorf("encoding request: %w", err)}
		}
		reqBody = bytes.NewReader(encoded)
	}

	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, reqBody)
	if err != nil {
		return 0, nil, &gateway.NetworkError{Op: req.Path, Err: err}
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, &gateway.NetworkError{Op: req.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, &gateway.NetworkError{Op: req.Path, Err: fmt.Errorf("reading response: %w", err)}
	}

	return resp.StatusCode, body, nil
}

func (c *Client) accessToken() string {
	st := c.store.Get()
	if st.Session == nil {
		return ""
	}
	return st.Session.AccessToken
}
