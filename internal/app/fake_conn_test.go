package app

import (
	"sync"

	"github.com/SkyMonder/SkyCalling/internal/core"
)

type fakeConn struct {
	id     core.ConnID
	mu     sync.Mutex
	closed bool
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
