// ABOUTME: Websocket push channel that follows the session store's token
// ABOUTME: Reconnects on rotation, closes on logout, maps events to invalidations

package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/2389/railboard/internal/api"
	"github.com/2389/railboard/internal/session"
)

// Wire-stable message types.
const (
	TypeHello = "hello"

	EventScheduleCreated = "schedule:created"
	EventScheduleUpdated = "schedule:updated"
	EventScheduleDeleted = "schedule:deleted"
)

const maxReadBytes = 1 << 20

// envelope is the wire wrapper for handshake and event messages.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type helloPayload struct {
	Token string `json:"token"`
}

type idPayload struct {
	ID string `json:"id,omitempty"`
}

// Invalidator receives cache-invalidation signals derived from push
// events. Implemented by the query cache.
type Invalidator interface {
	Invalidate(key string)
	Remove(key string)
}

// Channel owns at most one push connection at a time and follows the
// session store's access token.
type Channel struct {
	wsURL       string
	dialTimeout time.Duration
	store       *session.Store
	inv         Invalidator
	logger      *slog.Logger

	mu      sync.Mutex
	desired string // token the connection should use; "" means disconnected
	conn    *websocket.Conn
	token   string // token of the live connection
	cancel  context.CancelFunc
	onEvent func(event, id string)

	wake  chan struct{}
	done  chan struct{}
	unsub func()

	startOnce sync.Once
	closeOnce sync.Once
}

// New creates a channel for the push endpoint at baseURL+namespace. The
// HTTP scheme is rewritten to the websocket one. Pass nil logger for
// default.
func New(baseURL, namespace string, dialTimeout time.Duration, store *session.Store, inv Invalidator, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		wsURL:       toWebsocketURL(baseURL) + namespace,
		dialTimeout: dialTimeout,
		store:       store,
		inv:         inv,
		logger:      logger.With("component", "realtime"),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// Start subscribes to the session store and begins managing the
// connection. Reconnection is reactive: the channel acts on store
// notifications, never on polling.
func (c *Channel) Start() {
	c.startOnce.Do(func() {
		c.unsub = c.store.Subscribe(func(st session.State) {
			c.observe(st)
		})
		go c.run()
		c.observe(c.store.Get())
	})
}

// Close tears down the connection and stops following the store. Safe to
// call multiple times.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		if c.unsub != nil {
			c.unsub()
		}
		close(c.done)
	})
}

// OnEvent registers a callback invoked after each schedule event has
// been applied to the cache. The id is empty for events without one.
func (c *Channel) OnEvent(fn func(event, id string)) {
	c.mu.Lock()
	c.onEvent = fn
	c.mu.Unlock()
}

// observe records the token the connection should be using and wakes the
// manager. Runs inside store notification; must not block.
func (c *Channel) observe(st session.State) {
	token := ""
	if st.Session != nil {
		token = st.Session.AccessToken
	}

	c.mu.Lock()
	c.desired = token
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// run serializes connection changes so teardown always completes before
// the next dial.
func (c *Channel) run() {
	for {
		select {
		case <-c.wake:
			c.reconcile()
		case <-c.done:
			c.teardown()
			return
		}
	}
}

// reconcile brings the live connection in line with the desired token.
func (c *Channel) reconcile() {
	c.mu.Lock()
	desired := c.desired
	current := c.token
	connected := c.conn != nil
	c.mu.Unlock()

	if desired == current && (connected || desired == "") {
		return
	}

	// Tear down the previous connection before opening a new one to
	// avoid duplicate event delivery.
	c.teardown()

	if desired == "" {
		c.logger.Debug("session cleared, staying disconnected")
		return
	}

	c.dial(desired)
}

func (c *Channel) dial(token string) {
	ctx, cancel := context.WithCancel(context.Background())

	dialCtx, dialDone := context.WithTimeout(ctx, c.dialTimeout)
	defer dialDone()

	conn, resp, err := websocket.Dial(dialCtx, c.wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		cancel()
		c.logger.Warn("push connection failed", "url", c.wsURL, "error", err)
		return
	}
	conn.SetReadLimit(maxReadBytes)

	hello := envelope{Type: TypeHello}
	hello.Payload, _ = json.Marshal(helloPayload{Token: token})
	if err := wsjson.Write(dialCtx, conn, hello); err != nil {
		cancel()
		conn.Close(websocket.StatusInternalError, "handshake failed")
		c.logger.Warn("push handshake failed", "error", err)
		return
	}

	c.mu.Lock()
	c.conn = conn
	c.token = token
	c.cancel = cancel
	c.mu.Unlock()

	c.logger.Info("push connection established")
	go c.readLoop(ctx, conn)
}

func (c *Channel) teardown() {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.token = ""
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "reconnecting")
		c.logger.Debug("push connection closed")
	}
}

// readLoop consumes events until the connection dies. A dead connection
// is only redialed when the store notifies again; transient drops stay
// disconnected until the next session change.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var env envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			c.mu.Lock()
			stale := c.conn != conn
			c.mu.Unlock()
			if !stale && ctx.Err() == nil {
				c.logger.Warn("push connection lost", "error", err)
			}
			return
		}
		c.dispatch(env)
	}
}

// dispatch maps one push event into invalidation signals. Unknown event
// types are ignored.
func (c *Channel) dispatch(env envelope) {
	var p idPayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.logger.Debug("ignoring malformed event payload", "type", env.Type)
			return
		}
	}

	switch env.Type {
	case EventScheduleCreated:
		c.inv.Invalidate(api.ScheduleListKey())
	case EventScheduleUpdated:
		c.inv.Invalidate(api.ScheduleListKey())
		if p.ID != "" {
			c.inv.Invalidate(api.ScheduleDetailKey(p.ID))
		}
	case EventScheduleDeleted:
		c.inv.Invalidate(api.ScheduleListKey())
		if p.ID != "" {
			c.inv.Remove(api.ScheduleDetailKey(p.ID))
		}
	default:
		c.logger.Debug("ignoring unknown event", "type", env.Type)
		return
	}

	c.mu.Lock()
	fn := c.onEvent
	c.mu.Unlock()
	if fn != nil {
		fn(env.Type, p.ID)
	}
}

func toWebsocketURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}
