package meeting

import (
	"context"

	"github.com/dkeye/classmeet/internal/domain"
)

// Repository persists meeting records. Lookups return ErrNotFound on a miss;
// Create returns ErrDuplicateCode when the code collides with an active one.
type Repository interface {
	FindActiveByCode(ctx context.Context, code domain.MeetingCode) (*domain.Meeting, error)
	FindLatestByCode(ctx context.Context, code domain.MeetingCode) (*domain.Meeting, error)
	FindActiveByClassroom(ctx context.Context, classroomID uint) (*domain.Meeting, error)
	FindActiveAdHocByHost(ctx context.Context, host domain.UserID) (*domain.Meeting, error)
	Create(ctx context.Context, m *domain.Meeting) error
	MarkEnded(ctx context.Context, m *domain.Meeting) error
}

// ClassroomDirectory is the read-only view of classroom ownership and
// membership.
type ClassroomDirectory interface {
	FindClassroom(ctx context.Context, id uint) (*domain.Classroom, error)
	IsMember(ctx context.Context, classroomID uint, uid domain.UserID) (bool, error)
}

// Cache holds meetings by code. Get returns ErrNotFound on a miss. MarkEnded
// records the end so that a later Set of the same, still active, meeting is
// ignored.
type Cache interface {
	Get(ctx context.Context, code domain.MeetingCode) (*domain.Meeting, error)
	Set(ctx context.Context, m *domain.Meeting) error
	MarkEnded(ctx context.Context, m *domain.Meeting) error
}
