package orch

import (
	"context"
	"errors"

	"github.com/SkyMonder/SkyCalling/internal/app"
	"github.com/SkyMonder/SkyCalling/internal/core"
	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/rs/zerolog/log"
)

var errNoAuthenticator = errors.New("no authenticator configured")

func (o *Orchestrator) OnConnect(conn core.SignalConnection, cancel context.CancelFunc) {
	o.Registry.Attach(conn, cancel)
	o.Metrics.ConnectionOpened()
}

// Authenticate binds the identity behind token to conn. A previous holder of
// the identity loses its binding and its call, but stays connected.
func (o *Orchestrator) Authenticate(ctx context.Context, conn core.SignalConnection, token string) error {
	if o.Auth == nil {
		o.notify(conn, core.Outbound{Type: core.MsgAuthenticationFailed, Reason: "unavailable"})
		return errNoAuthenticator
	}
	user, err := o.Auth.Authenticate(ctx, token)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("conn", string(conn.ID())).Msg("authentication failed")
		o.notify(conn, core.Outbound{Type: core.MsgAuthenticationFailed, Reason: "invalid_token"})
		return err
	}

	if cur, ok := o.Bindings.IdentityOf(conn.ID()); ok && cur != user.ID {
		o.endCallsOf(conn.ID(), app.EventReplaced, domain.EndReplaced, true)
	}
	prev, replaced := o.Bindings.Bind(user.ID, conn.ID())
	o.Registry.SetUsername(conn.ID(), user.Username)
	o.Metrics.SetBindings(o.Bindings.Len())

	if replaced {
		o.endCallsOf(prev, app.EventReplaced, domain.EndReplaced, true)
		if old, ok := o.Registry.Get(prev); ok {
			o.notify(old, core.Outbound{Type: core.MsgSessionReplaced, Identity: user.ID})
		}
	}

	log.Info().
		Str("module", "orch").
		Str("conn", string(conn.ID())).
		Str("identity", string(user.ID)).
		Str("username", user.Username).
		Msg("authenticated")
	o.notify(conn, core.Outbound{
		Type:       core.MsgAuthenticated,
		Identity:   user.ID,
		Username:   user.Username,
		ICEServers: o.ICEServers,
	})
	return nil
}

// OnDisconnect runs once the transport of id is gone, whether or not it ever
// authenticated.
func (o *Orchestrator) OnDisconnect(id core.ConnID) {
	identity, bound := o.Bindings.Unbind(id)
	o.endCallsOf(id, app.EventConnectionLost, domain.EndPeerDisconnected, false)
	o.Registry.Detach(id)

	o.Metrics.ConnectionClosed()
	o.Metrics.SetBindings(o.Bindings.Len())
	ev := log.Info().Str("module", "orch").Str("conn", string(id))
	if bound {
		ev = ev.Str("identity", string(identity))
	}
	ev.Msg("connection cleaned up")
}

// endCallsOf drives ev for every call conn takes part in and tells the other
// party why the call ended.
func (o *Orchestrator) endCallsOf(conn core.ConnID, ev app.CallEvent, reason string, notifySelf bool) {
	for _, id := range o.Calls.FindByConnection(conn) {
		call, ok := o.Calls.Get(id)
		if !ok {
			continue
		}
		call.Lock()
		if _, err := call.Apply(conn, ev); err != nil {
			call.Unlock()
			o.drop(conn, id, ev, err)
			continue
		}
		self, peer, _ := call.Parties(conn)
		ended := core.Outbound{Type: core.MsgCallEnded, CallID: id, From: self.Identity, Reason: reason}
		o.notify(peer.Conn, ended)
		if notifySelf {
			o.notify(self.Conn, ended)
		}
		o.finish(call, reason)
		call.Unlock()
	}
}

// finish removes a call that has reached Ended. Must be called with the call
// lock held.
func (o *Orchestrator) finish(call *app.Call, reason string) {
	if o.Calls.Terminate(call.ID) {
		o.Metrics.CallEnded(reason)
	}
}
