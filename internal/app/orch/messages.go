package orch

import "github.com/dkeye/classmeet/internal/domain"

// Server-built frames. User ids are strings in membership events and numbers
// in state events; clients depend on both shapes.

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type existingParticipantsMessage struct {
	Type         string             `json:"type"`
	MeetingCode  domain.MeetingCode `json:"meetingCode"`
	Participants []string           `json:"participants"`
}

type participantMessage struct {
	Type        string             `json:"type"`
	MeetingCode domain.MeetingCode `json:"meetingCode"`
	UserID      string             `json:"userId"`
}

type stateMessage struct {
	Type        string             `json:"type"`
	MeetingCode domain.MeetingCode `json:"meetingCode"`
	UserID      domain.UserID      `json:"userId"`
	IsOn        bool               `json:"isOn"`
}

type endMeetingMessage struct {
	Type        string             `json:"type"`
	MeetingCode domain.MeetingCode `json:"meetingCode"`
	FromUserID  domain.UserID      `json:"fromUserId"`
}
