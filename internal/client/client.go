// ABOUTME: Facade assembling the session core, resource clients, and realtime channel
// ABOUTME: Owns the create/start/close lifecycle; no implicit singletons

package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/railboard/internal/api"
	"github.com/2389/railboard/internal/cache"
	"github.com/2389/railboard/internal/config"
	"github.com/2389/railboard/internal/gateway"
	"github.com/2389/railboard/internal/keyring"
	"github.com/2389/railboard/internal/realtime"
	"github.com/2389/railboard/internal/rehydrate"
	"github.com/2389/railboard/internal/session"
	"github.com/2389/railboard/internal/transport"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheEntries = 256
)

// Client is the assembled railboard client.
type Client struct {
	Sessions  *session.Store
	Schedules *api.Schedules
	Trains    *api.Trains
	Favorites *api.Favorites

	cfg        *config.Config
	logger     *slog.Logger
	gateway    *gateway.Gateway
	keyring    *keyring.Keyring
	cache      *cache.Cache
	rehydrator *rehydrate.Rehydrator
	channel    *realtime.Channel
}

// New constructs the component graph. A keyring that fails to open is
// logged and skipped: the client then runs memory-only, which loses
// sessions across restarts but affects nothing else. Pass nil logger for
// default.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{cfg: cfg, logger: logger}

	var persister session.Persister
	kr, err := keyring.Open(cfg.Storage.Path, cfg.Storage.KeyPath, logger)
	if err != nil {
		logger.Warn("credential storage unavailable, sessions will not survive restarts", "error", err)
	} else {
		c.keyring = kr
		persister = kr
	}

	c.Sessions = session.NewStore(persister, logger)
	c.gateway = gateway.New(cfg.API.BaseURL, cfg.API.Timeout, logger)

	tc := transport.NewClient(cfg.API.BaseURL, cfg.API.Timeout, c.Sessions, c.gateway, logger)
	c.cache = cache.New(cacheTTL, cacheEntries)
	c.Schedules = api.NewSchedules(tc, c.cache)
	c.Trains = api.NewTrains(tc, c.cache)
	c.Favorites = api.NewFavorites(tc, c.cache)

	if c.keyring != nil {
		c.rehydrator = rehydrate.New(c.keyring, c.gateway, c.Sessions, logger)
	}
	if cfg.Realtime.Enabled {
		c.channel = realtime.New(cfg.API.BaseURL, cfg.Realtime.Namespace, cfg.Realtime.DialTimeout, c.Sessions, c.cache, logger)
	}

	return c, nil
}

// Start rehydrates the session from durable storage, blocking until the
// rehydrated gate resolves, then starts the realtime channel. Call once.
func (c *Client) Start(ctx context.Context) {
	if c.rehydrator != nil {
		c.rehydrator.Run(ctx)
	} else {
		c.Sessions.MarkRehydrated()
	}

	if c.channel != nil {
		c.channel.Start()
	}
}

// Close disposes the realtime channel, cache, and keyring.
func (c *Client) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	c.cache.Close()
	if c.keyring != nil {
		if err := c.keyring.Close(); err != nil {
			c.logger.Warn("failed to close credential storage", "error", err)
		}
	}
}

// Login authenticates with email and password and installs the
// resulting session.
func (c *Client) Login(ctx context.Context, email, password string) error {
	sess, err := c.gateway.Login(ctx, email, password)
	if err != nil {
		return err
	}
	c.installSession(sess)
	return nil
}

// Register creates an account and installs the resulting session.
func (c *Client) Register(ctx context.Context, email, password string) error {
	sess, err := c.gateway.Register(ctx, email, password)
	if err != nil {
		return err
	}
	c.installSession(sess)
	return nil
}

// Logout clears the local session first and then notifies the server
// best-effort. It always completes locally, even when the remote call
// fails.
func (c *Client) Logout(ctx context.Context) {
	st := c.Sessions.Get()

	c.Sessions.Clear()
	c.cache.Flush()

	if st.Session == nil {
		return
	}
	if err := c.gateway.Logout(ctx, st.Session.RefreshToken); err != nil {
		c.logger.Warn("remote logout failed, local session already cleared", "error", err)
	}
}

// State returns a snapshot of the session state.
func (c *Client) State() session.State {
	return c.Sessions.Get()
}

// HasSession is the navigation gate for authenticated surfaces.
func (c *Client) HasSession() bool {
	return c.Sessions.Get().HasSession()
}

// Rehydrated reports whether startup rehydration has resolved. Callers
// must not render session-dependent surfaces before this is true.
func (c *Client) Rehydrated() bool {
	return c.Sessions.Get().Rehydrated
}

// OnRealtimeEvent registers a callback for schedule push events. It is a
// no-op when realtime is disabled in the config.
func (c *Client) OnRealtimeEvent(fn func(event, id string)) {
	if c.channel != nil {
		c.channel.OnEvent(fn)
	}
}

// installSession replaces the session and drops cached results from the
// previous identity.
func (c *Client) installSession(sess session.Session) {
	c.cache.Flush()
	c.Sessions.Set(sess)
}
