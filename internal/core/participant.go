package core

import "github.com/dkeye/classmeet/internal/domain"

// Participant binds a user to the transport endpoint it was admitted on.
// Values are immutable once admitted.
type Participant struct {
	SID    SessionID
	UserID domain.UserID
	Conn   SignalConnection

	seq uint64
}

// RoomMeta is captured from the meeting record on the first admission.
type RoomMeta struct {
	MeetingID  string
	HostUserID domain.UserID
}
