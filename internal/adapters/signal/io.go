package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SkyMonder/SkyCalling/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.ID())).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("conn", string(c.ID())).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.ID())).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.ID())).Msg("writePump ping")
				return
			}
		}
	}
}

// readPump owns the connection's inbound side. Its exit is the single point
// where a connection is closed and cleaned up.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(c.ID())).Msg("readPump closing")
		// Closed before cleanup so no new call can target this connection.
		c.Close()
		cancel()
		ctl.Orch.OnDisconnect(c.ID())
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.pongWait()))
	})

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.ID())).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.ID())).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.pongWait()))
			ctl.handleSignal(ctx, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, c core.SignalConnection, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad json")
		ctl.Orch.Fail(c, "bad_json")
		return
	}

	switch env.Type {
	case core.MsgAuthenticate:
		ctl.handleAuthenticate(ctx, c, data)
	case core.MsgPing:
		ctl.handlePing(c)
	case core.MsgCallRequest:
		ctl.handleCallRequest(c, data)
	case core.MsgAcceptCall:
		ctl.handleAccept(c, data)
	case core.MsgRejectCall:
		ctl.handleReject(c, data)
	case core.MsgICECandidate:
		ctl.handleCandidate(c, data)
	case core.MsgRenegotiateOffer:
		ctl.handleRenegotiateOffer(c, data)
	case core.MsgRenegotiateAnswer:
		ctl.handleRenegotiateAnswer(c, data)
	case core.MsgEndCall:
		ctl.handleEndCall(c, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.Orch.Fail(c, "unknown_type")
	}
}
