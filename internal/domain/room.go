package domain

import "strings"

// MeetingCode is the short human-typed code a room is keyed by.
type MeetingCode string

// NormalizeMeetingCode trims and upper-cases a typed code.
func NormalizeMeetingCode(raw string) MeetingCode {
	return MeetingCode(strings.ToUpper(strings.TrimSpace(raw)))
}

func (c MeetingCode) String() string { return string(c) }
