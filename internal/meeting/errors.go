package meeting

import "errors"

var (
	ErrNotFound          = errors.New("meeting: no active meeting with this code")
	ErrClassroomNotFound = errors.New("meeting: classroom not found")
	ErrForbidden         = errors.New("meeting: not authorized for this classroom")
	ErrNotHost           = errors.New("meeting: only the host can end the meeting")
	ErrDuplicateCode     = errors.New("meeting: duplicate meeting code")
	ErrCodeExhausted     = errors.New("meeting: unable to allocate a unique meeting code")
)
