package app

import (
	"fmt"
	"slices"

	"github.com/SkyMonder/SkyCalling/internal/domain"
)

type CallEvent int

const (
	EventAccept CallEvent = iota
	EventReject
	EventCandidate
	EventRenegotiateOffer
	EventRenegotiateAnswer
	EventEnd
	EventConnectionLost
	EventRingTimeout
	EventReplaced
)

func (e CallEvent) String() string {
	switch e {
	case EventAccept:
		return "accept"
	case EventReject:
		return "reject"
	case EventCandidate:
		return "ice-candidate"
	case EventRenegotiateOffer:
		return "renegotiate-offer"
	case EventRenegotiateAnswer:
		return "renegotiate-answer"
	case EventEnd:
		return "end-call"
	case EventConnectionLost:
		return "connection-lost"
	case EventRingTimeout:
		return "ring-timeout"
	case EventReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

type transition struct {
	from []domain.CallState
	to   domain.CallState
	// keep leaves the state untouched (candidates flow without a transition).
	keep bool
}

var nonTerminal = []domain.CallState{domain.CallRinging, domain.CallActive, domain.CallRenegotiating}

var transitions = map[CallEvent]transition{
	EventAccept:            {from: []domain.CallState{domain.CallRinging}, to: domain.CallActive},
	EventReject:            {from: []domain.CallState{domain.CallRinging}, to: domain.CallEnded},
	EventCandidate:         {from: nonTerminal, keep: true},
	EventRenegotiateOffer:  {from: []domain.CallState{domain.CallActive}, to: domain.CallRenegotiating},
	EventRenegotiateAnswer: {from: []domain.CallState{domain.CallRenegotiating}, to: domain.CallActive},
	EventEnd:               {from: nonTerminal, to: domain.CallEnded},
	EventConnectionLost:    {from: nonTerminal, to: domain.CallEnded},
	EventRingTimeout:       {from: []domain.CallState{domain.CallRinging}, to: domain.CallEnded},
	EventReplaced:          {from: nonTerminal, to: domain.CallEnded},
}

// Next returns the state reached by applying ev in state s.
func Next(s domain.CallState, ev CallEvent) (domain.CallState, error) {
	t, ok := transitions[ev]
	if !ok || !slices.Contains(t.from, s) {
		return s, fmt.Errorf("%w: %s in %s", domain.ErrIllegalTransition, ev, s)
	}
	if t.keep {
		return s, nil
	}
	return t.to, nil
}
