package orch

import (
	"fmt"
	"time"

	"github.com/SkyMonder/SkyCalling/internal/app"
	"github.com/SkyMonder/SkyCalling/internal/core"
	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/SkyMonder/SkyCalling/internal/metrics"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Orchestrator is the only component that mutates bindings and calls. Each
// connection's read pump calls into it sequentially; different connections
// call into it concurrently.
type Orchestrator struct {
	Registry    *app.Registry
	Bindings    *app.BindingTable
	Calls       *app.CallRegistry
	Auth        core.Authenticator
	Policy      app.Policy
	Metrics     *metrics.Metrics
	RingTimeout time.Duration
	ICEServers  []webrtc.ICEServer
}

type Stats struct {
	Connections int `json:"connections"`
	Online      int `json:"online"`
	Calls       int `json:"calls"`
}

func (o *Orchestrator) Stats() Stats {
	return Stats{
		Connections: o.Registry.Len(),
		Online:      o.Bindings.Len(),
		Calls:       o.Calls.Len(),
	}
}

// deliver queues msg on dst without blocking. On failure the policy decides
// whether dst is dropped.
func (o *Orchestrator) deliver(dst core.SignalConnection, msg core.Outbound) error {
	f, err := core.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("type", msg.Type).Msg("encode outbound")
		return err
	}
	err = dst.TrySend(f)
	if err == nil {
		return nil
	}
	o.Metrics.Undelivered()
	log.Warn().
		Err(err).
		Str("module", "orch").
		Str("conn", string(dst.ID())).
		Str("type", msg.Type).
		Msg("delivery failed")
	if o.Policy != nil && o.Policy.OnDeliveryFailure(dst, err) == app.Disconnect {
		log.Warn().Str("module", "orch").Str("conn", string(dst.ID())).Msg("disconnecting slow connection")
		o.Registry.Cancel(dst.ID())
		dst.Close()
	}
	return fmt.Errorf("%w: %w", domain.ErrDestinationUnreachable, err)
}

// notify is deliver for server-originated notices whose loss needs no follow-up.
func (o *Orchestrator) notify(dst core.SignalConnection, msg core.Outbound) {
	_ = o.deliver(dst, msg)
}

// Pong answers an application level ping.
func (o *Orchestrator) Pong(conn core.SignalConnection) {
	o.notify(conn, core.Outbound{Type: core.MsgPong})
}

// Fail reports a malformed or unsupported request back to its sender.
func (o *Orchestrator) Fail(conn core.SignalConnection, reason string) {
	o.Metrics.Dropped(metrics.DropBadPayload)
	o.notify(conn, core.Outbound{Type: core.MsgError, Error: reason})
}
