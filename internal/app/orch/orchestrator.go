// Package orch drives the signaling state machine: join authorization, room
// membership changes and message fan-out. It is transport-agnostic and only
// talks to connections through core.SignalConnection.
package orch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/classmeet/internal/app"
	"github.com/dkeye/classmeet/internal/core"
	"github.com/dkeye/classmeet/internal/domain"
)

// MeetingDirectory is the part of the meeting registry signaling needs.
type MeetingDirectory interface {
	LookupActiveMeeting(ctx context.Context, code domain.MeetingCode) (*domain.Meeting, error)
	EndMeeting(ctx context.Context, code domain.MeetingCode, uid domain.UserID) error
}

type Orchestrator struct {
	Rooms    *core.RoomTable
	Meetings MeetingDirectory
	Registry *app.Registry
	Policy   app.Policy
	Limiter  *app.JoinRateLimiter

	// TokenMaxAge rejects join tokens older than this; zero disables it.
	TokenMaxAge time.Duration
	// VerifyHost restricts end-meeting to the meeting host.
	VerifyHost bool

	Now func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Shutdown closes every live connection. Their read pumps then run the
// usual disconnect cleanup.
func (o *Orchestrator) Shutdown() {
	if o.Registry == nil {
		return
	}
	o.Registry.CloseAll(core.CloseGoingAway)
}

func encode(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("marshal frame")
		return nil
	}
	return b
}

// deliver sends one frame to one participant. Failures are logged and
// never propagate to the other recipients.
func (o *Orchestrator) deliver(code domain.MeetingCode, p core.Participant, f core.Frame) {
	err := p.Conn.TrySend(f)
	if err == nil {
		return
	}
	logger := log.With().Str("module", "orch").Str("meeting", string(code)).Str("sid", string(p.SID)).Str("user", p.UserID.String()).Logger()
	if !errors.Is(err, core.ErrBackpressure) {
		logger.Debug().Err(err).Msg("send skipped")
		return
	}
	action := app.DropFrame
	if o.Policy != nil {
		action = o.Policy.OnBackPressure(code, p)
	}
	switch action {
	case app.KickMember:
		logger.Warn().Msg("slow peer kicked")
		p.Conn.Close(core.ClosePolicyViolation)
	case app.DropFrame, app.NoAction:
		logger.Warn().Msg("slow peer, frame dropped")
	}
}

func (o *Orchestrator) fanOut(code domain.MeetingCode, to []core.Participant, f core.Frame) {
	if f == nil {
		return
	}
	for _, p := range to {
		o.deliver(code, p, f)
	}
}

// sender resolves the joined session of sid; unjoined senders are dropped.
func (o *Orchestrator) sender(sid core.SessionID, typ string) (core.SessionInfo, bool) {
	info, ok := o.Rooms.Session(sid)
	if !ok {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("type", typ).Msg("message from unjoined connection dropped")
	}
	return info, ok
}
