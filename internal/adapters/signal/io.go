package signal

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/classmeet/internal/core"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				code := c.closeStatus()
				msg := websocket.FormatCloseMessage(int(code), "")
				if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(ctl.opts.WriteWait)); err != nil {
					log.Debug().Err(err).Str("module", "signal").Msg("writePump close frame")
				}
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		if ctl.Orch.Registry != nil {
			ctl.Orch.Registry.Unbind(sid)
		}
		c.Close(core.CloseGoingAway)
		// The write pump owns the socket; give it a moment to flush before
		// cancellation stops it.
		time.AfterFunc(ctl.opts.WriteWait, cancel)
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		if ctx.Err() != nil {
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		}
		// Closed is terminal; nothing more is dispatched for this connection.
		if c.isClosed() {
			log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("readPump connection closed")
			return
		}
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				log.Info().Str("module", "signal").Str("sid", string(sid)).Int("code", ce.Code).Msg("peer closed")
			} else {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		if msgType != websocket.TextMessage {
			log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("non-text frame dropped")
			continue
		}
		if c.isClosed() {
			log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("frame after close dropped")
			return
		}
		ctl.handleSignal(ctx, sid, c, data)
	}
}
