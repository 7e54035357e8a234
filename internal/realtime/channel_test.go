// ABOUTME: Tests for the push channel's connection lifecycle and event mapping
// ABOUTME: Covers handshake token, reconnect on rotation, close on logout, invalidation signals

package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/railboard/internal/api"
	"github.com/2389/railboard/internal/session"
)

type fakeInvalidator struct {
	mu          sync.Mutex
	invalidated []string
	removed     []string
}

func (f *fakeInvalidator) Invalidate(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, key)
}

func (f *fakeInvalidator) Remove(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, key)
}

func (f *fakeInvalidator) snapshot() (invalidated, removed []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.invalidated...), append([]string(nil), f.removed...)
}

type serverConn struct {
	conn   *websocket.Conn
	token  string
	closed chan struct{}
}

// pushServer accepts websocket connections, records the handshake token
// of each, and can push events to the most recent connection.
type pushServer struct {
	t   *testing.T
	srv *httptest.Server

	mu    sync.Mutex
	conns []*serverConn
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{t: t}
	ps.srv = httptest.NewServer(http.HandlerFunc(ps.handle))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pushServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var env envelope
	if err := wsjson.Read(ctx, conn, &env); err != nil {
		conn.Close(websocket.StatusPolicyViolation, "missing handshake")
		return
	}
	var hello helloPayload
	if err := json.Unmarshal(env.Payload, &hello); err != nil {
		conn.Close(websocket.StatusPolicyViolation, "bad handshake")
		return
	}

	sc := &serverConn{conn: conn, token: hello.Token, closed: make(chan struct{})}
	ps.mu.Lock()
	ps.conns = append(ps.conns, sc)
	ps.mu.Unlock()

	// Consume frames until the client closes; signals teardown to tests.
	for {
		if _, _, err := conn.Read(context.Background()); err != nil {
			close(sc.closed)
			return
		}
	}
}

func (ps *pushServer) connCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.conns)
}

func (ps *pushServer) conn(i int) *serverConn {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.conns[i]
}

func (ps *pushServer) push(t *testing.T, eventType, id string) {
	t.Helper()
	ps.mu.Lock()
	sc := ps.conns[len(ps.conns)-1]
	ps.mu.Unlock()

	env := envelope{Type: eventType}
	if id != "" {
		payload, err := json.Marshal(idPayload{ID: id})
		require.NoError(t, err)
		env.Payload = payload
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, sc.conn, env))
}

func sessionWith(token string) session.Session {
	return session.Session{
		AccessToken:  token,
		RefreshToken: "refresh-1",
		User:         session.AuthUser{ID: "user-1", Email: "rider@rail.example.com", Role: "user"},
	}
}

func startChannel(t *testing.T, ps *pushServer, store *session.Store, inv Invalidator) *Channel {
	t.Helper()
	c := New(ps.srv.URL, "/schedules", 5*time.Second, store, inv, nil)
	c.Start()
	t.Cleanup(c.Close)
	return c
}

func TestChannel_ConnectsWithSessionToken(t *testing.T) {
	ps := newPushServer(t)
	store := session.NewStore(nil, nil)
	store.Set(sessionWith("access-1"))

	startChannel(t, ps, store, &fakeInvalidator{})

	require.Eventually(t, func() bool { return ps.connCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "access-1", ps.conn(0).token)
}

func TestChannel_StaysDisconnectedWithoutSession(t *testing.T) {
	ps := newPushServer(t)
	store := session.NewStore(nil, nil)

	startChannel(t, ps, store, &fakeInvalidator{})

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, ps.connCount())
}

func TestChannel_ReconnectsOnTokenRotation(t *testing.T) {
	ps := newPushServer(t)
	store := session.NewStore(nil, nil)
	store.Set(sessionWith("access-old"))

	startChannel(t, ps, store, &fakeInvalidator{})
	require.Eventually(t, func() bool { return ps.connCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Rotate the token, as the refresh coordinator would.
	store.Set(sessionWith("access-new"))

	require.Eventually(t, func() bool { return ps.connCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	select {
	case <-ps.conn(0).closed:
	case <-time.After(2 * time.Second):
		t.Fatal("old connection was not torn down")
	}
	assert.Equal(t, "access-new", ps.conn(1).token)
}

func TestChannel_ClosesOnLogout(t *testing.T) {
	ps := newPushServer(t)
	store := session.NewStore(nil, nil)
	store.Set(sessionWith("access-1"))

	startChannel(t, ps, store, &fakeInvalidator{})
	require.Eventually(t, func() bool { return ps.connCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	store.Clear()

	select {
	case <-ps.conn(0).closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not closed on logout")
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, ps.connCount(), "no reconnect after logout")
}

func TestChannel_UnchangedTokenDoesNotReconnect(t *testing.T) {
	ps := newPushServer(t)
	store := session.NewStore(nil, nil)
	store.Set(sessionWith("access-1"))

	startChannel(t, ps, store, &fakeInvalidator{})
	require.Eventually(t, func() bool { return ps.connCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Same token set again, e.g. an unrelated store notification.
	store.Set(sessionWith("access-1"))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, ps.connCount())
}

func TestChannel_EventsMapToInvalidations(t *testing.T) {
	ps := newPushServer(t)
	store := session.NewStore(nil, nil)
	store.Set(sessionWith("access-1"))
	inv := &fakeInvalidator{}

	startChannel(t, ps, store, inv)
	require.Eventually(t, func() bool { return ps.connCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	ps.push(t, EventScheduleCreated, "")
	ps.push(t, EventScheduleUpdated, "sched-7")
	ps.push(t, EventScheduleDeleted, "sched-9")

	require.Eventually(t, func() bool {
		invalidated, removed := inv.snapshot()
		return len(invalidated) == 4 && len(removed) == 1
	}, 2*time.Second, 10*time.Millisecond)

	invalidated, removed := inv.snapshot()
	assert.Equal(t, []string{
		api.ScheduleListKey(),
		api.ScheduleListKey(),
		api.ScheduleDetailKey("sched-7"),
		api.ScheduleListKey(),
	}, invalidated)
	assert.Equal(t, []string{api.ScheduleDetailKey("sched-9")}, removed)
}

func TestChannel_IgnoresUnknownEvents(t *testing.T) {
	inv := &fakeInvalidator{}
	c := New("http://localhost:0", "/schedules", time.Second, session.NewStore(nil, nil), inv, nil)

	c.dispatch(envelope{Type: "schedule:repainted"})

	invalidated, removed := inv.snapshot()
	assert.Empty(t, invalidated)
	assert.Empty(t, removed)
}

func TestChannel_EventHookFiresAfterInvalidation(t *testing.T) {
	inv := &fakeInvalidator{}
	c := New("http://localhost:0", "/schedules", time.Second, session.NewStore(nil, nil), inv, nil)

	type seen struct{ event, id string }
	var got []seen
	c.OnEvent(func(event, id string) {
		got = append(got, seen{event, id})
	})

	payload, _ := json.Marshal(idPayload{ID: "sched-3"})
	c.dispatch(envelope{Type: EventScheduleUpdated, Payload: payload})
	c.dispatch(envelope{Type: "schedule:repainted", Payload: payload})

	require.Equal(t, []seen{{EventScheduleUpdated, "sched-3"}}, got)
	invalidated, _ := inv.snapshot()
	assert.NotEmpty(t, invalidated, "hook observes state after cache work")
}

func TestToWebsocketURL(t *testing.T) {
	assert.Equal(t, "ws://rail.example.com", toWebsocketURL("http://rail.example.com"))
	assert.Equal(t, "wss://rail.example.com", toWebsocketURL("https://rail.example.com"))
}
