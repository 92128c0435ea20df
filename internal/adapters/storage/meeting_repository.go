package storage

import (
	"context"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/dkeye/classmeet/internal/domain"
	"github.com/dkeye/classmeet/internal/meeting"
)

// MeetingRepository implements meeting.Repository on gorm.
type MeetingRepository struct {
	db *gorm.DB
}

func NewMeetingRepository(db *gorm.DB) *MeetingRepository {
	if db == nil {
		panic("database connection cannot be nil for MeetingRepository")
	}
	return &MeetingRepository{db: db}
}

func (r *MeetingRepository) FindActiveByCode(ctx context.Context, code domain.MeetingCode) (*domain.Meeting, error) {
	return r.first(ctx, "find active meeting by code",
		r.db.WithContext(ctx).Where("meeting_code = ? AND active = ?", code, true))
}

// FindLatestByCode returns the newest meeting that used the code, ended ones
// included.
func (r *MeetingRepository) FindLatestByCode(ctx context.Context, code domain.MeetingCode) (*domain.Meeting, error) {
	return r.first(ctx, "find latest meeting by code",
		r.db.WithContext(ctx).Where("meeting_code = ?", code).Order("id DESC"))
}

func (r *MeetingRepository) FindActiveByClassroom(ctx context.Context, classroomID uint) (*domain.Meeting, error) {
	return r.first(ctx, "find active classroom meeting",
		r.db.WithContext(ctx).Where("classroom_id = ? AND active = ?", classroomID, true))
}

func (r *MeetingRepository) FindActiveAdHocByHost(ctx context.Context, host domain.UserID) (*domain.Meeting, error) {
	return r.first(ctx, "find active ad-hoc meeting",
		r.db.WithContext(ctx).Where("host_user_id = ? AND classroom_id IS NULL AND active = ?", host, true))
}

func (r *MeetingRepository) Create(ctx context.Context, m *domain.Meeting) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDuplicate(err) {
			return meeting.ErrDuplicateCode
		}
		return fmt.Errorf("gorm: create meeting %s: %w", m.Code, err)
	}
	return nil
}

func (r *MeetingRepository) MarkEnded(ctx context.Context, m *domain.Meeting) error {
	res := r.db.WithContext(ctx).Model(&domain.Meeting{}).Where("id = ?", m.ID).
		Select("active", "ended_at", "active_code").
		Updates(map[string]any{
			"active":      m.Active,
			"ended_at":    m.EndedAt,
			"active_code": m.ActiveCode,
		})
	if res.Error != nil {
		return fmt.Errorf("gorm: mark meeting %s ended: %w", m.Code, res.Error)
	}
	if res.RowsAffected == 0 {
		return meeting.ErrNotFound
	}
	return nil
}

func (r *MeetingRepository) first(ctx context.Context, op string, q *gorm.DB) (*domain.Meeting, error) {
	var m domain.Meeting
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, meeting.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: %s: %w", op, err)
	}
	return &m, nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *gomysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
