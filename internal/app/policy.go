package app

import (
	"errors"

	"github.com/SkyMonder/SkyCalling/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	Disconnect
)

// Policy decides what happens to a destination that could not take a frame.
type Policy interface {
	OnDeliveryFailure(dst core.SignalConnection, err error) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnDeliveryFailure(_ core.SignalConnection, err error) BackpressureAction {
	if errors.Is(err, core.ErrBackpressure) {
		return Disconnect
	}
	return NoAction
}
