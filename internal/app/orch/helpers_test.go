package orch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SkyMonder/SkyCalling/internal/app"
	"github.com/SkyMonder/SkyCalling/internal/core"
	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/SkyMonder/SkyCalling/internal/metrics"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id core.ConnID

	mu     sync.Mutex
	closed bool
	// full makes every TrySend fail with ErrBackpressure.
	full   bool
	frames []core.Frame
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: core.ConnID(id)} }

func (c *fakeConn) ID() core.ConnID { return c.id }

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// hookedConn runs hook from inside the (skip+1)th ID call after it is armed,
// which lets a test act in the middle of an orchestrator operation.
type hookedConn struct {
	*fakeConn

	hookMu sync.Mutex
	skip   int
	hook   func()
}

func (c *hookedConn) arm(skip int, hook func()) {
	c.hookMu.Lock()
	c.skip, c.hook = skip, hook
	c.hookMu.Unlock()
}

func (c *hookedConn) ID() core.ConnID {
	c.hookMu.Lock()
	var run func()
	if c.hook != nil {
		if c.skip > 0 {
			c.skip--
		} else {
			run, c.hook = c.hook, nil
		}
	}
	c.hookMu.Unlock()
	if run != nil {
		run()
	}
	return c.fakeConn.ID()
}

func (c *fakeConn) setFull(v bool) {
	c.mu.Lock()
	c.full = v
	c.mu.Unlock()
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

func (c *fakeConn) messages(t *testing.T) []core.Outbound {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Outbound, 0, len(c.frames))
	for _, f := range c.frames {
		var m core.Outbound
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) types(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, m := range c.messages(t) {
		out = append(out, m.Type)
	}
	return out
}

func (c *fakeConn) ofType(t *testing.T, typ string) []core.Outbound {
	t.Helper()
	var out []core.Outbound
	for _, m := range c.messages(t) {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

// stubAuth accepts any token naming an identity; "bad" is rejected.
type stubAuth struct{}

func (stubAuth) Authenticate(_ context.Context, token string) (*domain.User, error) {
	if token == "" || token == "bad" {
		return nil, errors.New("invalid token")
	}
	return &domain.User{ID: domain.Identity(token), Username: strings.ToUpper(token)}, nil
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	return &Orchestrator{
		Registry:    app.NewRegistry(),
		Bindings:    app.NewBindingTable(),
		Calls:       app.NewCallRegistry(),
		Auth:        stubAuth{},
		Policy:      app.SimplePolicy{},
		Metrics:     metrics.New(),
		RingTimeout: time.Minute,
	}
}

// connect attaches a connection and, if identity is set, authenticates it.
// Frames produced along the way are discarded.
func connect(t *testing.T, o *Orchestrator, id string, identity domain.Identity) *fakeConn {
	t.Helper()
	conn := newFakeConn(id)
	o.OnConnect(conn, func() {})
	if identity != "" {
		require.NoError(t, o.Authenticate(context.Background(), conn, string(identity)))
	}
	conn.reset()
	return conn
}

func connectHooked(t *testing.T, o *Orchestrator, id string, identity domain.Identity) *hookedConn {
	t.Helper()
	conn := &hookedConn{fakeConn: newFakeConn(id)}
	o.OnConnect(conn, func() {})
	require.NoError(t, o.Authenticate(context.Background(), conn, string(identity)))
	conn.reset()
	return conn
}

func disconnect(o *Orchestrator, conn *fakeConn) {
	conn.Close()
	o.OnDisconnect(conn.ID())
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

// activeCall sets up alice calling bob and bob accepting.
func activeCall(t *testing.T, o *Orchestrator) (a, b *fakeConn, id domain.CallID) {
	t.Helper()
	a = connect(t, o, "ca", "alice")
	b = connect(t, o, "cb", "bob")
	id, err := o.CallRequest(a, "bob", raw(`{"sdp":"offer"}`))
	require.NoError(t, err)
	require.NoError(t, o.Accept(b, id, raw(`{"sdp":"answer"}`)))
	a.reset()
	b.reset()
	return a, b, id
}

func stateOf(t *testing.T, o *Orchestrator, id domain.CallID) domain.CallState {
	t.Helper()
	call, ok := o.Calls.Get(id)
	require.True(t, ok, "call %s not registered", id)
	call.Lock()
	defer call.Unlock()
	return call.State()
}
