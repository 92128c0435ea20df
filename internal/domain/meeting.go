package domain

import "time"

// Meeting is the durable meeting record. Code uniqueness holds only among
// active meetings: ActiveCode mirrors Code while active and is NULL after
// the meeting ends, so the unique index never blocks reuse of an ended code.
type Meeting struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	MeetingID   string      `gorm:"uniqueIndex;size:36;not null" json:"meetingId"`
	Code        MeetingCode `gorm:"column:meeting_code;index;size:16;not null" json:"meetingCode"`
	ActiveCode  *string     `gorm:"uniqueIndex;size:16" json:"-"`
	ClassroomID *uint       `gorm:"index" json:"classroomId,omitempty"`
	HostUserID  UserID      `gorm:"index;not null" json:"hostUserId"`
	Title       string      `gorm:"size:255" json:"title"`
	Active      bool        `gorm:"index;not null" json:"active"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	EndedAt     *time.Time  `json:"endedAt,omitempty"`
}

func (m *Meeting) IsClassroomMeeting() bool { return m.ClassroomID != nil }

// Classroom is owned by the classroom CRUD layer; read here only to
// authorize meeting creation and joins.
type Classroom struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:255;not null"`
	TeacherID UserID `gorm:"index;not null"`
}

type ClassroomMember struct {
	ID          uint   `gorm:"primaryKey"`
	ClassroomID uint   `gorm:"uniqueIndex:idx_classroom_member;not null"`
	UserID      UserID `gorm:"uniqueIndex:idx_classroom_member;not null"`
}
