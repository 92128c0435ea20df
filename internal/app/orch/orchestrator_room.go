package orch

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/classmeet/internal/core"
	"github.com/dkeye/classmeet/internal/domain"
	"github.com/dkeye/classmeet/internal/meeting"
	"github.com/dkeye/classmeet/internal/token"
)

type JoinRequest struct {
	MeetingCode string
	UserID      domain.UserID
	Token       string
}

// Join authorizes and admits a connection. On rejection the joiner gets an
// error frame and its connection is closed; the room is left untouched.
func (o *Orchestrator) Join(ctx context.Context, sid core.SessionID, conn core.SignalConnection, req JoinRequest) error {
	if info, ok := o.Rooms.Session(sid); ok {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("meeting", string(info.MeetingCode)).Msg("join on already joined connection ignored")
		return core.ErrAlreadyJoined
	}
	code := domain.NormalizeMeetingCode(req.MeetingCode)

	m, jerr := o.authorize(ctx, code, req)
	if jerr != nil {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("meeting", string(code)).
			Str("user", req.UserID.String()).Str("reason", string(jerr.Reason)).Msg("join rejected")
		o.reject(conn, jerr)
		return jerr
	}

	self := core.Participant{SID: sid, UserID: req.UserID, Conn: conn}
	meta := core.RoomMeta{MeetingID: m.MeetingID, HostUserID: m.HostUserID}
	existing, err := o.Rooms.Admit(code, meta, self)
	if errors.Is(err, core.ErrMeetingEnded) {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("meeting", string(code)).
			Str("user", req.UserID.String()).Msg("join raced with end-meeting, rejected")
		jerr := rejection(ReasonNoMeeting, msgNoMeeting)
		o.reject(conn, jerr)
		return jerr
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("admit failed")
		return err
	}

	ids := make([]string, 0, len(existing))
	for _, p := range existing {
		ids = append(ids, p.UserID.String())
	}
	o.deliver(code, self, encode(existingParticipantsMessage{
		Type:         "existing-participants",
		MeetingCode:  code,
		Participants: ids,
	}))

	if len(existing) > 0 {
		others := make([]core.Participant, 0, len(existing))
		for _, p := range existing {
			if p.UserID != req.UserID {
				others = append(others, p)
			}
		}
		o.fanOut(code, others, encode(participantMessage{
			Type:        "participant-joined",
			MeetingCode: code,
			UserID:      req.UserID.String(),
		}))
	}

	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("meeting", string(code)).
		Str("user", req.UserID.String()).Int("existing", len(existing)).Msg("joined")
	return nil
}

func (o *Orchestrator) authorize(ctx context.Context, code domain.MeetingCode, req JoinRequest) (*domain.Meeting, *JoinError) {
	if req.UserID <= 0 {
		return nil, rejection(ReasonBadUser, msgBadUser)
	}
	if o.Limiter != nil && !o.Limiter.Allow(req.UserID) {
		return nil, rejection(ReasonRateLimited, msgRateLimited)
	}

	m, err := o.Meetings.LookupActiveMeeting(ctx, code)
	switch {
	case errors.Is(err, meeting.ErrNotFound):
		return nil, rejection(ReasonNoMeeting, msgNoMeeting)
	case err != nil:
		log.Error().Err(err).Str("module", "orch").Str("meeting", string(code)).Msg("meeting lookup failed")
		return nil, rejection(ReasonUnavailable, msgUnavailable)
	case !m.Active:
		return nil, rejection(ReasonNoMeeting, msgNoMeeting)
	}

	if strings.TrimSpace(req.Token) == "" {
		return nil, rejection(ReasonNoToken, msgNoToken)
	}
	claims, err := token.Decode(req.Token)
	if err != nil || claims.MeetingID != m.MeetingID {
		return nil, rejection(ReasonBadToken, msgBadToken)
	}
	if o.TokenMaxAge > 0 && o.now().Sub(claims.IssuedAt) > o.TokenMaxAge {
		return nil, rejection(ReasonBadToken, msgBadToken)
	}
	return m, nil
}

func (o *Orchestrator) reject(conn core.SignalConnection, jerr *JoinError) {
	if err := conn.TrySend(encode(errorMessage{Type: "error", Message: jerr.Message})); err != nil {
		log.Debug().Err(err).Str("module", "orch").Msg("join error frame not sent")
	}
	code := core.ClosePolicyViolation
	if jerr.Reason == ReasonUnavailable {
		code = core.CloseInternalError
	}
	conn.Close(code)
}

// Disconnect removes the connection from its room and tells the remaining
// members. It is a no-op for connections that are not joined, so leave
// followed by the transport close runs it once.
func (o *Orchestrator) Disconnect(sid core.SessionID) {
	info, remaining, ok := o.Rooms.Release(sid)
	if !ok {
		return
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("meeting", string(info.MeetingCode)).
		Str("user", info.UserID.String()).Int("remaining", len(remaining)).Msg("left")
	o.fanOut(info.MeetingCode, remaining, encode(participantMessage{
		Type:        "participant-left",
		MeetingCode: info.MeetingCode,
		UserID:      info.UserID.String(),
	}))
}

// EndMeeting terminates the sender's meeting for everyone. The registry
// record is ended first, then the room and all its sessions are removed at
// once, the end-meeting broadcast goes out and every connection is closed.
func (o *Orchestrator) EndMeeting(ctx context.Context, sid core.SessionID, conn core.SignalConnection) {
	info, ok := o.sender(sid, "end-meeting")
	if !ok {
		return
	}
	logger := log.With().Str("module", "orch").Str("sid", string(sid)).Str("meeting", string(info.MeetingCode)).Str("user", info.UserID.String()).Logger()

	if o.VerifyHost {
		meta, ok := o.Rooms.Meta(info.MeetingCode)
		if !ok {
			return
		}
		if meta.HostUserID != info.UserID {
			logger.Warn().Str("host", meta.HostUserID.String()).Msg("end-meeting from non-host refused")
			if err := conn.TrySend(encode(errorMessage{Type: "error", Message: msgNotHost})); err != nil {
				logger.Debug().Err(err).Msg("error frame not sent")
			}
			return
		}
	}

	ended := true
	if o.Meetings != nil {
		err := o.Meetings.EndMeeting(ctx, info.MeetingCode, info.UserID)
		switch {
		case err == nil, errors.Is(err, meeting.ErrNotFound):
		case errors.Is(err, meeting.ErrNotHost):
			ended = false
			logger.Warn().Msg("room torn down by non-host, meeting record left active")
		default:
			ended = false
			logger.Error().Err(err).Msg("end meeting in registry failed")
		}
	}

	evicted := o.terminate(info.MeetingCode, info.UserID, ended)
	closeAll(evicted)
	logger.Info().Int("participants", len(evicted)).Msg("meeting ended")
}

// CloseRoom ends the live room of a meeting that was ended elsewhere, such
// as through the REST API. It reports whether a room existed.
func (o *Orchestrator) CloseRoom(code domain.MeetingCode, from domain.UserID) bool {
	evicted := o.terminate(code, from, true)
	closeAll(evicted)
	if len(evicted) > 0 {
		log.Info().Str("module", "orch").Str("meeting", string(code)).Int("participants", len(evicted)).Msg("room closed")
	}
	return len(evicted) > 0
}

// terminate removes the room with all of its sessions and sends end-meeting
// to everyone who was in it. When ended is set the room table also refuses
// late admissions to the same meeting.
func (o *Orchestrator) terminate(code domain.MeetingCode, from domain.UserID, ended bool) []core.Participant {
	var evicted []core.Participant
	if ended {
		evicted = o.Rooms.End(code)
	} else {
		evicted, _ = o.Rooms.Evict(code)
	}
	o.fanOut(code, evicted, encode(endMeetingMessage{
		Type:        "end-meeting",
		MeetingCode: code,
		FromUserID:  from,
	}))
	return evicted
}

func closeAll(ps []core.Participant) {
	for _, p := range ps {
		p.Conn.Close(core.CloseNormal)
	}
}
