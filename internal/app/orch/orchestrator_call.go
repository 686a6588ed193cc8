package orch

import (
	"encoding/json"

	"github.com/SkyMonder/SkyCalling/internal/app"
	"github.com/SkyMonder/SkyCalling/internal/core"
	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/SkyMonder/SkyCalling/internal/metrics"
	"github.com/rs/zerolog/log"
)

// CallRequest starts a call from the identity bound to conn towards to. The
// offer reaches the callee before any other event of the new call.
func (o *Orchestrator) CallRequest(conn core.SignalConnection, to domain.Identity, offer json.RawMessage) (domain.CallID, error) {
	call, err := o.openCall(conn, to)
	if err != nil {
		o.Refuse(conn, to, err)
		return "", err
	}
	defer call.Unlock()
	if err := o.stillBound(call); err != nil {
		// A re-login slipped in before the call was registered, so the
		// replaced connection's cleanup could not see it.
		call.Apply("", app.EventEnd)
		o.Calls.Terminate(call.ID)
		o.Refuse(conn, to, err)
		return "", err
	}
	o.Metrics.CallStarted()

	id := call.ID
	call.ArmTimer(o.RingTimeout, func() { o.ringExpired(id) })

	err = o.deliver(call.Callee.Conn, core.Outbound{
		Type:         core.MsgIncomingCall,
		CallID:       id,
		From:         call.Caller.Identity,
		FromUsername: call.Caller.Username,
		Offer:        offer,
	})
	if err != nil {
		o.notify(conn, core.Outbound{Type: core.MsgPeerUnreachable, CallID: id})
		return id, err
	}
	o.Metrics.Relayed(core.MsgIncomingCall)
	o.notify(conn, core.Outbound{Type: core.MsgCallRinging, CallID: id, To: to})
	return id, nil
}

// Refuse tells the caller its call-request could not be placed.
func (o *Orchestrator) Refuse(conn core.SignalConnection, to domain.Identity, err error) {
	reason := domain.FailReason(err)
	o.Metrics.CallFailed(reason)
	log.Info().
		Err(err).
		Str("module", "orch").
		Str("conn", string(conn.ID())).
		Str("to", string(to)).
		Str("reason", reason).
		Msg("call refused")
	o.notify(conn, core.Outbound{Type: core.MsgCallFailed, To: to, Reason: reason})
}

func (o *Orchestrator) openCall(conn core.SignalConnection, to domain.Identity) (*app.Call, error) {
	from, ok := o.Bindings.IdentityOf(conn.ID())
	if !ok {
		return nil, domain.ErrNotAuthenticated
	}
	if from == to {
		return nil, domain.ErrSelfCall
	}
	callee, err := o.resolveIdentity(to)
	if err != nil {
		return nil, err
	}
	return o.Calls.Create(
		app.Party{Identity: from, Username: o.Registry.Username(conn.ID()), Conn: conn},
		app.Party{Identity: to, Username: o.Registry.Username(callee.ID()), Conn: callee},
	)
}

// stillBound reports whether both parties of a freshly created call still
// hold their identities on the connections the call was opened with.
func (o *Orchestrator) stillBound(call *app.Call) error {
	if cur, err := o.Bindings.Lookup(call.Caller.Identity); err != nil || cur != call.Caller.ConnID() {
		return domain.ErrNotAuthenticated
	}
	if cur, err := o.Bindings.Lookup(call.Callee.Identity); err != nil || cur != call.Callee.ConnID() {
		return domain.ErrIdentityOffline
	}
	return nil
}

func (o *Orchestrator) Accept(conn core.SignalConnection, id domain.CallID, answer json.RawMessage) error {
	return o.onCallEvent(conn, id, app.EventAccept, func(call *app.Call, self, peer app.Party) {
		o.relay(call, self, peer, core.Outbound{Type: core.MsgCallAccepted, CallID: call.ID, From: self.Identity, Answer: answer})
	})
}

func (o *Orchestrator) Reject(conn core.SignalConnection, id domain.CallID) error {
	return o.onCallEvent(conn, id, app.EventReject, func(call *app.Call, self, peer app.Party) {
		o.relay(call, self, peer, core.Outbound{Type: core.MsgCallRejected, CallID: call.ID, From: self.Identity})
		o.finish(call, domain.EndRejected)
	})
}

func (o *Orchestrator) Candidate(conn core.SignalConnection, id domain.CallID, candidate json.RawMessage) error {
	return o.onCallEvent(conn, id, app.EventCandidate, func(call *app.Call, self, peer app.Party) {
		o.relay(call, self, peer, core.Outbound{Type: core.MsgICECandidate, CallID: call.ID, Candidate: candidate})
	})
}

func (o *Orchestrator) RenegotiateOffer(conn core.SignalConnection, id domain.CallID, offer json.RawMessage) error {
	return o.onCallEvent(conn, id, app.EventRenegotiateOffer, func(call *app.Call, self, peer app.Party) {
		o.relay(call, self, peer, core.Outbound{Type: core.MsgRenegotiateOffer, CallID: call.ID, Offer: offer})
	})
}

func (o *Orchestrator) RenegotiateAnswer(conn core.SignalConnection, id domain.CallID, answer json.RawMessage) error {
	return o.onCallEvent(conn, id, app.EventRenegotiateAnswer, func(call *app.Call, self, peer app.Party) {
		o.relay(call, self, peer, core.Outbound{Type: core.MsgRenegotiateAnswer, CallID: call.ID, Answer: answer})
	})
}

// EndCall hangs up. Ending a ringing call cancels it.
func (o *Orchestrator) EndCall(conn core.SignalConnection, id domain.CallID) error {
	return o.onCallEvent(conn, id, app.EventEnd, func(call *app.Call, self, peer app.Party) {
		o.relay(call, self, peer, core.Outbound{Type: core.MsgCallEnded, CallID: call.ID, From: self.Identity, Reason: domain.EndHangup})
		o.finish(call, domain.EndHangup)
	})
}

// onCallEvent applies ev under the call lock and runs then on success, so
// everything one call relays leaves in the order it was accepted.
func (o *Orchestrator) onCallEvent(conn core.SignalConnection, id domain.CallID, ev app.CallEvent, then func(call *app.Call, self, peer app.Party)) error {
	if _, ok := o.Bindings.IdentityOf(conn.ID()); !ok {
		o.Metrics.Dropped(metrics.DropUnauthenticated)
		return domain.ErrNotAuthenticated
	}
	call, err := o.resolveCall(conn.ID(), id)
	if err != nil {
		o.drop(conn.ID(), id, ev, err)
		return err
	}

	call.Lock()
	defer call.Unlock()
	state, err := call.Apply(conn.ID(), ev)
	if err != nil {
		o.drop(conn.ID(), call.ID, ev, err)
		return err
	}
	self, peer, _ := call.Parties(conn.ID())
	log.Debug().
		Str("module", "orch").
		Str("call_id", string(call.ID)).
		Str("event", ev.String()).
		Str("state", state.String()).
		Msg("call event")
	then(call, self, peer)
	return nil
}

func (o *Orchestrator) ringExpired(id domain.CallID) {
	call, ok := o.Calls.Get(id)
	if !ok {
		return
	}
	call.Lock()
	defer call.Unlock()
	if _, err := call.Apply("", app.EventRingTimeout); err != nil {
		return
	}
	log.Info().Str("module", "orch").Str("call_id", string(id)).Msg("ring timeout")
	for _, p := range []app.Party{call.Caller, call.Callee} {
		o.notify(p.Conn, core.Outbound{Type: core.MsgCallEnded, CallID: id, Reason: domain.EndNoAnswer})
	}
	o.finish(call, domain.EndNoAnswer)
}
