package orch

type JoinReason string

const (
	ReasonNoMeeting   JoinReason = "no_meeting"
	ReasonNoToken     JoinReason = "no_token"
	ReasonBadToken    JoinReason = "bad_token"
	ReasonBadUser     JoinReason = "bad_user"
	ReasonRateLimited JoinReason = "rate_limited"
	ReasonUnavailable JoinReason = "unavailable"
)

const (
	msgNoMeeting   = "No active meeting exists with this code. Please check the code or ask the host to start a meeting."
	msgNoToken     = "Authentication required. Please join the meeting through the official interface."
	msgBadToken    = "Invalid authentication token. Please rejoin the meeting."
	msgBadUser     = "A valid user id is required to join the meeting."
	msgRateLimited = "Too many join attempts. Please wait a moment and try again."
	msgUnavailable = "Unable to verify the meeting right now. Please try again later."
	msgNotHost     = "Only the host can end the meeting."
)

// JoinError is a rejected join. Message is what the client is shown.
type JoinError struct {
	Reason  JoinReason
	Message string
}

func (e *JoinError) Error() string { return "join rejected: " + string(e.Reason) }

func rejection(reason JoinReason, msg string) *JoinError {
	return &JoinError{Reason: reason, Message: msg}
}
