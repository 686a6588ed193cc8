package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/SkyMonder/SkyCalling/internal/core"
	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/rs/zerolog/log"
)

// Party is one side of a call: who they are and where they are connected.
type Party struct {
	Identity domain.Identity
	Username string
	Conn     core.SignalConnection
}

func (p Party) ConnID() core.ConnID { return p.Conn.ID() }

// Call is one call attempt. Its mutable fields are guarded by its own lock so
// events for different calls never contend.
type Call struct {
	ID        domain.CallID
	Caller    Party
	Callee    Party
	CreatedAt time.Time

	mu      sync.Mutex
	state   domain.CallState
	offerer core.ConnID
	timer   *time.Timer
}

func (c *Call) Lock()   { c.mu.Lock() }
func (c *Call) Unlock() { c.mu.Unlock() }

// State must be called with the lock held.
func (c *Call) State() domain.CallState { return c.state }

// Parties returns the sender side and the other side for conn.
func (c *Call) Parties(conn core.ConnID) (self, peer Party, ok bool) {
	switch conn {
	case c.Caller.ConnID():
		return c.Caller, c.Callee, true
	case c.Callee.ConnID():
		return c.Callee, c.Caller, true
	}
	return Party{}, Party{}, false
}

// Apply runs ev against the call on behalf of conn. An empty conn means the
// event was raised by the server itself (ring timeout). Must be called with
// the lock held.
func (c *Call) Apply(conn core.ConnID, ev CallEvent) (domain.CallState, error) {
	if c.state.Terminal() {
		return c.state, domain.ErrUnknownCall
	}
	if conn != "" {
		if _, _, ok := c.Parties(conn); !ok {
			return c.state, domain.ErrUnauthorizedParticipant
		}
		switch ev {
		case EventAccept, EventReject:
			if conn != c.Callee.ConnID() {
				return c.state, fmt.Errorf("%w: %s from caller", domain.ErrUnauthorizedParticipant, ev)
			}
		case EventRenegotiateAnswer:
			if conn == c.offerer {
				return c.state, fmt.Errorf("%w: answer from offerer", domain.ErrIllegalTransition)
			}
		}
	}

	next, err := Next(c.state, ev)
	if err != nil {
		return c.state, err
	}
	switch ev {
	case EventRenegotiateOffer:
		c.offerer = conn
	case EventRenegotiateAnswer:
		c.offerer = ""
	}
	if c.state == domain.CallRinging && next != domain.CallRinging && c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.state = next
	return next, nil
}

// ArmTimer schedules fn unless the call has already left Ringing. Must be
// called with the lock held.
func (c *Call) ArmTimer(d time.Duration, fn func()) {
	if d <= 0 || c.state != domain.CallRinging {
		return
	}
	c.timer = time.AfterFunc(d, fn)
}

// CallRegistry owns every non-terminal call. A connection takes part in at
// most one of them.
type CallRegistry struct {
	mu     sync.RWMutex
	calls  map[domain.CallID]*Call
	byConn map[core.ConnID]domain.CallID
	now    func() time.Time
}

func NewCallRegistry() *CallRegistry {
	return &CallRegistry{
		calls:  make(map[domain.CallID]*Call),
		byConn: make(map[core.ConnID]domain.CallID),
		now:    time.Now,
	}
}

// Create registers a ringing call between caller and callee. The returned
// call is already locked; the caller must Unlock it once the offer has been
// forwarded so no other event can overtake it.
func (r *CallRegistry) Create(caller, callee Party) (*Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if callee.Conn.Closed() {
		return nil, domain.ErrIdentityOffline
	}
	if caller.Conn.Closed() {
		return nil, fmt.Errorf("caller: %w", core.ErrConnClosed)
	}
	if _, busy := r.byConn[caller.ConnID()]; busy {
		return nil, fmt.Errorf("caller already in a call: %w", domain.ErrCalleeBusy)
	}
	if _, busy := r.byConn[callee.ConnID()]; busy {
		return nil, domain.ErrCalleeBusy
	}

	c := &Call{
		ID:        domain.NewCallID(),
		Caller:    caller,
		Callee:    callee,
		CreatedAt: r.now(),
		state:     domain.CallRinging,
	}
	c.Lock()
	r.calls[c.ID] = c
	r.byConn[caller.ConnID()] = c.ID
	r.byConn[callee.ConnID()] = c.ID
	log.Info().
		Str("module", "app.calls").
		Str("call_id", string(c.ID)).
		Str("caller", string(caller.Identity)).
		Str("callee", string(callee.Identity)).
		Msg("call created")
	return c, nil
}

func (r *CallRegistry) Get(id domain.CallID) (*Call, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.calls[id]
	return c, ok
}

// Terminate forgets the call. Unknown ids are a no-op so racing end and
// disconnect events are harmless.
func (r *CallRegistry) Terminate(id domain.CallID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok {
		return false
	}
	delete(r.calls, id)
	for _, conn := range []core.ConnID{c.Caller.ConnID(), c.Callee.ConnID()} {
		if r.byConn[conn] == id {
			delete(r.byConn, conn)
		}
	}
	log.Info().Str("module", "app.calls").Str("call_id", string(id)).Msg("call terminated")
	return true
}

// FindByConnection lists the calls conn takes part in, ringing ones included.
func (r *CallRegistry) FindByConnection(conn core.ConnID) []domain.CallID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.byConn[conn]; ok {
		return []domain.CallID{id}
	}
	return nil
}

func (r *CallRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.calls)
}
