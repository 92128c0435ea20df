package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/classmeet/internal/core"
	"github.com/dkeye/classmeet/internal/domain"
)

// Relay forwards a handshake frame unchanged to the earliest-joined
// connection of the target user in the sender's room. Misses are silent.
func (o *Orchestrator) Relay(sid core.SessionID, typ string, to domain.UserID, raw core.Frame) {
	info, ok := o.sender(sid, typ)
	if !ok {
		return
	}
	target, ok := o.Rooms.Peer(info.MeetingCode, to)
	if !ok {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("meeting", string(info.MeetingCode)).
			Str("type", typ).Str("to", to.String()).Msg("relay target not in room")
		return
	}
	o.deliver(info.MeetingCode, target, raw)
}

// Broadcast forwards a frame unchanged to every member of the sender's room,
// the sender included.
func (o *Orchestrator) Broadcast(sid core.SessionID, typ string, raw core.Frame) {
	info, ok := o.sender(sid, typ)
	if !ok {
		return
	}
	o.fanOut(info.MeetingCode, o.Rooms.Members(info.MeetingCode), raw)
}

// State broadcasts a normalized mic-state or cam-state event for the sender.
func (o *Orchestrator) State(sid core.SessionID, typ string, isOn bool) {
	info, ok := o.sender(sid, typ)
	if !ok {
		return
	}
	log.Debug().Str("module", "orch").Str("meeting", string(info.MeetingCode)).Str("user", info.UserID.String()).
		Str("type", typ).Bool("on", isOn).Msg("state changed")
	o.fanOut(info.MeetingCode, o.Rooms.Members(info.MeetingCode), encode(stateMessage{
		Type:        typ,
		MeetingCode: info.MeetingCode,
		UserID:      info.UserID,
		IsOn:        isOn,
	}))
}
