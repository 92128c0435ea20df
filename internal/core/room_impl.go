package core

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/classmeet/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyJoined = errors.New("session already joined a room")
	ErrMeetingEnded  = errors.New("meeting ended")
)

// EndedTTL is how long End keeps refusing admissions to an ended meeting.
const EndedTTL = time.Minute

type room struct {
	meta    RoomMeta
	members map[SessionID]Participant
}

// endedRoom marks a code whose meeting ended; an empty meetingID matches any
// meeting.
type endedRoom struct {
	meetingID string
	at        time.Time
}

// RoomTable is the authoritative live membership of every meeting plus the
// session reverse index. Both maps share one lock, so a session entry exists
// iff its participant is in some room, and a room exists iff it has members.
// It never closes adapter-owned resources.
type RoomTable struct {
	mu       sync.RWMutex
	rooms    map[domain.MeetingCode]*room
	sessions map[SessionID]SessionInfo
	ended    map[domain.MeetingCode]endedRoom
	seq      uint64

	now func() time.Time
}

func NewRoomTable() *RoomTable {
	return &RoomTable{
		rooms:    make(map[domain.MeetingCode]*room),
		sessions: make(map[SessionID]SessionInfo),
		ended:    make(map[domain.MeetingCode]endedRoom),
		now:      time.Now,
	}
}

// Admit inserts a participant, creating the room if needed, and returns the
// members that were present before it in join order. Admissions to a meeting
// closed by End fail with ErrMeetingEnded.
func (t *RoomTable) Admit(code domain.MeetingCode, meta RoomMeta, p Participant) ([]Participant, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sessions[p.SID]; ok {
		return nil, ErrAlreadyJoined
	}
	if e, ok := t.ended[code]; ok {
		if t.now().Sub(e.at) >= EndedTTL {
			delete(t.ended, code)
		} else if e.meetingID == "" || e.meetingID == meta.MeetingID {
			return nil, ErrMeetingEnded
		}
	}
	r, ok := t.rooms[code]
	if !ok {
		r = &room{meta: meta, members: make(map[SessionID]Participant)}
		t.rooms[code] = r
		log.Info().Str("module", "core.room").Str("meeting", string(code)).Msg("room created")
	}
	existing := snapshot(r.members)

	t.seq++
	p.seq = t.seq
	r.members[p.SID] = p
	t.sessions[p.SID] = SessionInfo{MeetingCode: code, UserID: p.UserID}
	log.Info().Str("module", "core.room").Str("sid", string(p.SID)).Str("meeting", string(code)).Str("user", p.UserID.String()).Msg("member added")
	return existing, nil
}

// Release removes the session and its participant. It returns the remaining
// members; ok is false when the session was not joined, which makes repeated
// calls no-ops.
func (t *RoomTable) Release(sid SessionID) (info SessionInfo, remaining []Participant, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok = t.sessions[sid]
	if !ok {
		return SessionInfo{}, nil, false
	}
	delete(t.sessions, sid)

	r, exists := t.rooms[info.MeetingCode]
	if !exists {
		return info, nil, true
	}
	delete(r.members, sid)
	log.Info().Str("module", "core.room").Str("sid", string(sid)).Str("meeting", string(info.MeetingCode)).Msg("member removed")
	if len(r.members) == 0 {
		delete(t.rooms, info.MeetingCode)
		log.Info().Str("module", "core.room").Str("meeting", string(info.MeetingCode)).Msg("room emptied, removed")
		return info, nil, true
	}
	return info, snapshot(r.members), true
}

// Evict removes a room and every session in it at once.
func (t *RoomTable) Evict(code domain.MeetingCode) ([]Participant, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rooms[code]
	if !ok {
		return nil, false
	}
	return t.evictLocked(code, r), true
}

// End evicts the room like Evict and then refuses admissions to the same
// meeting for EndedTTL, so a join authorized before the meeting ended cannot
// bring the room back. It works on codes without a live room too.
func (t *RoomTable) End(code domain.MeetingCode) []Participant {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for c, e := range t.ended {
		if now.Sub(e.at) >= EndedTTL {
			delete(t.ended, c)
		}
	}
	var (
		out []Participant
		id  string
	)
	if r, ok := t.rooms[code]; ok {
		id = r.meta.MeetingID
		out = t.evictLocked(code, r)
	}
	t.ended[code] = endedRoom{meetingID: id, at: now}
	return out
}

func (t *RoomTable) evictLocked(code domain.MeetingCode, r *room) []Participant {
	out := snapshot(r.members)
	for sid := range r.members {
		delete(t.sessions, sid)
	}
	delete(t.rooms, code)
	log.Info().Str("module", "core.room").Str("meeting", string(code)).Int("members", len(out)).Msg("room evicted")
	return out
}

func (t *RoomTable) Session(sid SessionID) (SessionInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.sessions[sid]
	return info, ok
}

// Members returns a copy of the room's participants in join order.
func (t *RoomTable) Members(code domain.MeetingCode) []Participant {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rooms[code]
	if !ok {
		return nil
	}
	return snapshot(r.members)
}

// Peer finds the earliest-joined participant of the room with the given user.
func (t *RoomTable) Peer(code domain.MeetingCode, uid domain.UserID) (Participant, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rooms[code]
	if !ok {
		return Participant{}, false
	}
	var (
		found Participant
		hit   bool
	)
	for _, p := range r.members {
		if p.UserID != uid {
			continue
		}
		if !hit || p.seq < found.seq {
			found, hit = p, true
		}
	}
	return found, hit
}

func (t *RoomTable) Meta(code domain.MeetingCode) (RoomMeta, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rooms[code]
	if !ok {
		return RoomMeta{}, false
	}
	return r.meta, true
}

func (t *RoomTable) List() []RoomInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RoomInfo, 0, len(t.rooms))
	for code, r := range t.rooms {
		out = append(out, RoomInfo{MeetingCode: code, ParticipantCount: len(r.members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MeetingCode < out[j].MeetingCode })
	return out
}

func snapshot(members map[SessionID]Participant) []Participant {
	out := make([]Participant, 0, len(members))
	for _, p := range members {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}
