package domain

import (
	"errors"

	"github.com/google/uuid"
)

type CallID string

func NewCallID() CallID { return CallID(uuid.NewString()) }

type CallState int

const (
	CallRinging CallState = iota
	CallActive
	CallRenegotiating
	CallEnded
)

func (s CallState) String() string {
	switch s {
	case CallRinging:
		return "ringing"
	case CallActive:
		return "active"
	case CallRenegotiating:
		return "renegotiating"
	case CallEnded:
		return "ended"
	default:
		return "unknown"
	}
}

func (s CallState) Terminal() bool { return s == CallEnded }

// Reasons carried by call-ended and call-failed notices.
const (
	EndHangup           = "hangup"
	EndPeerDisconnected = "peer-disconnected"
	EndNoAnswer         = "no-answer"
	EndReplaced         = "replaced"
	EndRejected         = "rejected"

	FailOffline          = "offline"
	FailBusy             = "busy"
	FailSelf             = "self"
	FailRateLimited      = "rate_limited"
	FailNotAuthenticated = "not_authenticated"
)

var (
	ErrIdentityOffline         = errors.New("identity offline")
	ErrCalleeBusy              = errors.New("callee busy")
	ErrUnknownCall             = errors.New("unknown call")
	ErrUnauthorizedParticipant = errors.New("unauthorized participant")
	ErrDestinationUnreachable  = errors.New("destination unreachable")
	ErrIllegalTransition       = errors.New("illegal transition")
	ErrNotAuthenticated        = errors.New("not authenticated")
	ErrSelfCall                = errors.New("cannot call yourself")
	ErrRateLimited             = errors.New("rate limited")
)

// FailReason maps a call-request error to the reason string sent to the caller.
func FailReason(err error) string {
	switch {
	case errors.Is(err, ErrCalleeBusy):
		return FailBusy
	case errors.Is(err, ErrSelfCall):
		return FailSelf
	case errors.Is(err, ErrRateLimited):
		return FailRateLimited
	case errors.Is(err, ErrNotAuthenticated):
		return FailNotAuthenticated
	default:
		return FailOffline
	}
}
