package signal

import (
	"context"
	"encoding/json"

	"github.com/SkyMonder/SkyCalling/internal/core"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleAuthenticate(
	ctx context.Context,
	conn core.SignalConnection,
	data []byte,
) {
	var p struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad authenticate payload")
		ctl.Orch.Fail(conn, "bad_payload")
		return
	}
	_ = ctl.Orch.Authenticate(ctx, conn, p.Token)
}
