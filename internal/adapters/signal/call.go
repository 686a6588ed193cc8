package signal

import (
	"encoding/json"

	"github.com/SkyMonder/SkyCalling/internal/core"
	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/rs/zerolog/log"
)

type callPayload struct {
	CallID    domain.CallID   `json:"callId"`
	To        domain.Identity `json:"to"`
	Offer     json.RawMessage `json:"offer"`
	Answer    json.RawMessage `json:"answer"`
	Candidate json.RawMessage `json:"candidate"`
}

// decode reports a malformed frame to its sender and returns false.
func (ctl *SignalWSController) decode(conn core.SignalConnection, data []byte) (callPayload, bool) {
	var p callPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(conn.ID())).Msg("bad call payload")
		ctl.Orch.Fail(conn, "bad_payload")
		return p, false
	}
	return p, true
}

func (ctl *SignalWSController) require(conn core.SignalConnection, field string, v json.RawMessage) bool {
	if len(v) == 0 {
		ctl.Orch.Fail(conn, "missing "+field)
		return false
	}
	return true
}

func (ctl *SignalWSController) handleCallRequest(conn core.SignalConnection, data []byte) {
	p, ok := ctl.decode(conn, data)
	if !ok || !ctl.require(conn, "offer", p.Offer) {
		return
	}
	if p.To == "" {
		ctl.Orch.Fail(conn, "missing to")
		return
	}
	if identity, bound := ctl.Orch.Bindings.IdentityOf(conn.ID()); bound && ctl.Limiter != nil && !ctl.Limiter.Allow(identity) {
		ctl.Orch.Refuse(conn, p.To, domain.ErrRateLimited)
		return
	}
	_, _ = ctl.Orch.CallRequest(conn, p.To, p.Offer)
}

func (ctl *SignalWSController) handleAccept(conn core.SignalConnection, data []byte) {
	p, ok := ctl.decode(conn, data)
	if !ok || !ctl.require(conn, "answer", p.Answer) {
		return
	}
	_ = ctl.Orch.Accept(conn, p.CallID, p.Answer)
}

func (ctl *SignalWSController) handleReject(conn core.SignalConnection, data []byte) {
	if p, ok := ctl.decode(conn, data); ok {
		_ = ctl.Orch.Reject(conn, p.CallID)
	}
}

func (ctl *SignalWSController) handleCandidate(conn core.SignalConnection, data []byte) {
	p, ok := ctl.decode(conn, data)
	if !ok || !ctl.require(conn, "candidate", p.Candidate) {
		return
	}
	_ = ctl.Orch.Candidate(conn, p.CallID, p.Candidate)
}

func (ctl *SignalWSController) handleRenegotiateOffer(conn core.SignalConnection, data []byte) {
	p, ok := ctl.decode(conn, data)
	if !ok || !ctl.require(conn, "offer", p.Offer) {
		return
	}
	_ = ctl.Orch.RenegotiateOffer(conn, p.CallID, p.Offer)
}

func (ctl *SignalWSController) handleRenegotiateAnswer(conn core.SignalConnection, data []byte) {
	p, ok := ctl.decode(conn, data)
	if !ok || !ctl.require(conn, "answer", p.Answer) {
		return
	}
	_ = ctl.Orch.RenegotiateAnswer(conn, p.CallID, p.Answer)
}

func (ctl *SignalWSController) handleEndCall(conn core.SignalConnection, data []byte) {
	if p, ok := ctl.decode(conn, data); ok {
		_ = ctl.Orch.EndCall(conn, p.CallID)
	}
}
