package signal

import "github.com/SkyMonder/SkyCalling/internal/core"

func (ctl *SignalWSController) handlePing(conn core.SignalConnection) {
	ctl.Orch.Pong(conn)
}
