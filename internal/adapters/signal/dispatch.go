package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/classmeet/internal/app/orch"
	"github.com/dkeye/classmeet/internal/core"
	"github.com/dkeye/classmeet/internal/domain"
)

func (ctl *SignalWSController) handleSignal(ctx context.Context, sid core.SessionID, c *WsSignalConn, data []byte) {
	env, err := decodeEnvelope(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad message dropped")
		return
	}

	switch env.Type {
	case typeJoin:
		ctl.handleJoin(ctx, sid, c, env)
	case typeOffer, typeAnswer, typeICECandidate:
		ctl.handleRelay(sid, env, data)
	case typeChatMessage, typeRaiseHand:
		ctl.Orch.Broadcast(sid, env.Type, data)
	case typeMicState, typeCamState:
		ctl.Orch.State(sid, env.Type, env.isOn())
	case typeEndMeeting:
		ctl.Orch.EndMeeting(ctx, sid, c)
	case typeLeave:
		ctl.handleLeave(sid, c)
	case typePing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) handleJoin(ctx context.Context, sid core.SessionID, c *WsSignalConn, env envelope) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("meeting", env.MeetingCode).Msg("join")
	_ = ctl.Orch.Join(ctx, sid, c, orch.JoinRequest{
		MeetingCode: env.MeetingCode,
		UserID:      domain.UserID(env.FromUserID),
		Token:       env.joinToken(),
	})
}

func (ctl *SignalWSController) handleRelay(sid core.SessionID, env envelope, data []byte) {
	if err := env.validateHandshake(); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("relay dropped")
		return
	}
	ctl.Orch.Relay(sid, env.Type, domain.UserID(env.ToUserID), data)
}

// handleLeave runs the disconnect cleanup and closes the connection; a left
// connection never rejoins.
func (ctl *SignalWSController) handleLeave(sid core.SessionID, c *WsSignalConn) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	ctl.Orch.Disconnect(sid)
	c.Close(core.CloseNormal)
}
