package core

import "github.com/dkeye/classmeet/internal/domain"

// RoomInfo is a read-only view for APIs (no transport fields).
type RoomInfo struct {
	MeetingCode      domain.MeetingCode `json:"meetingCode"`
	ParticipantCount int                `json:"participantCount"`
}
