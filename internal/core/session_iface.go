package core

import "github.com/dkeye/classmeet/internal/domain"

// SessionID identifies one live signaling connection.
type SessionID string

// SessionInfo is the reverse index from a connection to its room membership.
type SessionInfo struct {
	MeetingCode domain.MeetingCode
	UserID      domain.UserID
}
