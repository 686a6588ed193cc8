package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Inbound message types.
const (
	MsgAuthenticate      = "authenticate"
	MsgCallRequest       = "call-request"
	MsgAcceptCall        = "accept-call"
	MsgRejectCall        = "reject-call"
	MsgICECandidate      = "ice-candidate"
	MsgRenegotiateOffer  = "renegotiate-offer"
	MsgRenegotiateAnswer = "renegotiate-answer"
	MsgEndCall           = "end-call"
	MsgPing              = "ping"
)

// Outbound message types. ice-candidate and the renegotiate pair reuse the
// inbound names.
const (
	MsgAuthenticated        = "authenticated"
	MsgAuthenticationFailed = "authentication-failed"
	MsgCallRinging          = "call-ringing"
	MsgCallFailed           = "call-failed"
	MsgIncomingCall         = "incoming-call"
	MsgCallAccepted         = "call-accepted"
	MsgCallRejected         = "call-rejected"
	MsgCallEnded            = "call-ended"
	MsgPeerUnreachable      = "peer-unreachable"
	MsgSessionReplaced      = "session-replaced"
	MsgPong                 = "pong"
	MsgError                = "error"
)

// Outbound is the single envelope for everything the server sends.
// Negotiation payloads are carried as raw JSON and never inspected.
type Outbound struct {
	Type         string             `json:"type"`
	CallID       domain.CallID      `json:"callId,omitempty"`
	Identity     domain.Identity    `json:"identity,omitempty"`
	Username     string             `json:"username,omitempty"`
	From         domain.Identity    `json:"from,omitempty"`
	FromUsername string             `json:"fromUsername,omitempty"`
	To           domain.Identity    `json:"to,omitempty"`
	Offer        json.RawMessage    `json:"offer,omitempty"`
	Answer       json.RawMessage    `json:"answer,omitempty"`
	Candidate    json.RawMessage    `json:"candidate,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	Error        string             `json:"error,omitempty"`
	ICEServers   []webrtc.ICEServer `json:"iceServers,omitempty"`
}

// ErrBadPayload is returned by Encode when a negotiation payload is not valid
// JSON.
var ErrBadPayload = errors.New("payload is not valid JSON")

// Encode renders msg as a single frame. offer, answer and candidate are copied
// into the frame exactly as received; everything else goes through
// encoding/json without HTML escaping.
func Encode(msg Outbound) (Frame, error) {
	payloads := []struct {
		key string
		raw json.RawMessage
	}{
		{"offer", msg.Offer},
		{"answer", msg.Answer},
		{"candidate", msg.Candidate},
	}
	msg.Offer, msg.Answer, msg.Candidate = nil, nil, nil

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	// drop the trailing newline and the closing brace; "type" is always
	// present so every payload follows a member
	head := bytes.TrimRight(buf.Bytes(), "\n")
	out := make([]byte, 0, buf.Len()+len(payloads[0].raw)+len(payloads[1].raw)+len(payloads[2].raw)+40)
	out = append(out, head[:len(head)-1]...)
	for _, p := range payloads {
		if len(p.raw) == 0 {
			continue
		}
		if !json.Valid(p.raw) {
			return nil, fmt.Errorf("%s: %w", p.key, ErrBadPayload)
		}
		out = append(out, `,"`...)
		out = append(out, p.key...)
		out = append(out, `":`...)
		out = append(out, p.raw...)
	}
	out = append(out, '}')
	return Frame(out), nil
}
