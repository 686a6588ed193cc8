package orch

import (
	"errors"

	"github.com/SkyMonder/SkyCalling/internal/app"
	"github.com/SkyMonder/SkyCalling/internal/core"
	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/SkyMonder/SkyCalling/internal/metrics"
	"github.com/rs/zerolog/log"
)

// resolveIdentity finds the live connection bound to identity.
func (o *Orchestrator) resolveIdentity(identity domain.Identity) (core.SignalConnection, error) {
	connID, err := o.Bindings.Lookup(identity)
	if err != nil {
		return nil, err
	}
	conn, ok := o.Registry.Get(connID)
	if !ok || conn.Closed() {
		return nil, domain.ErrIdentityOffline
	}
	return conn, nil
}

// resolveCall finds the call an in-call event refers to. Without an explicit
// id the sender's only non-terminal call is used.
func (o *Orchestrator) resolveCall(conn core.ConnID, id domain.CallID) (*app.Call, error) {
	if id == "" {
		ids := o.Calls.FindByConnection(conn)
		if len(ids) == 0 {
			return nil, domain.ErrUnknownCall
		}
		id = ids[0]
	}
	call, ok := o.Calls.Get(id)
	if !ok {
		return nil, domain.ErrUnknownCall
	}
	return call, nil
}

// relay forwards msg from one party to the other, payload untouched. The
// sender hears about an unreachable peer; teardown is left to the peer's
// disconnect path.
func (o *Orchestrator) relay(call *app.Call, from, to app.Party, msg core.Outbound) {
	if err := o.deliver(to.Conn, msg); err != nil {
		o.notify(from.Conn, core.Outbound{Type: core.MsgPeerUnreachable, CallID: call.ID})
		return
	}
	o.Metrics.Relayed(msg.Type)
	log.Debug().
		Str("module", "orch").
		Str("call_id", string(call.ID)).
		Str("from", string(from.Identity)).
		Str("to", string(to.Identity)).
		Str("type", msg.Type).
		Msg("relayed")
}

func (o *Orchestrator) drop(conn core.ConnID, id domain.CallID, event app.CallEvent, err error) {
	reason := metrics.DropIllegalState
	ev := log.Debug()
	switch {
	case errors.Is(err, domain.ErrUnknownCall):
		reason = metrics.DropUnknownCall
	case errors.Is(err, domain.ErrUnauthorizedParticipant):
		reason = metrics.DropUnauthorized
		// possibly a spoofed call id
		ev = log.Warn()
	}
	o.Metrics.Dropped(reason)
	ev.
		Err(err).
		Str("module", "orch").
		Str("conn", string(conn)).
		Str("call_id", string(id)).
		Str("event", event.String()).
		Str("reason", reason).
		Msg("event dropped")
}
