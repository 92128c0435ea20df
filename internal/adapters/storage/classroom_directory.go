package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/dkeye/classmeet/internal/domain"
	"github.com/dkeye/classmeet/internal/meeting"
)

// ClassroomDirectory reads classroom ownership and membership written by the
// classroom management side.
type ClassroomDirectory struct {
	db *gorm.DB
}

func NewClassroomDirectory(db *gorm.DB) *ClassroomDirectory {
	if db == nil {
		panic("database connection cannot be nil for ClassroomDirectory")
	}
	return &ClassroomDirectory{db: db}
}

func (d *ClassroomDirectory) FindClassroom(ctx context.Context, id uint) (*domain.Classroom, error) {
	var c domain.Classroom
	if err := d.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, meeting.ErrClassroomNotFound
		}
		return nil, fmt.Errorf("gorm: find classroom %d: %w", id, err)
	}
	return &c, nil
}

func (d *ClassroomDirectory) IsMember(ctx context.Context, classroomID uint, uid domain.UserID) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&domain.ClassroomMember{}).
		Where("classroom_id = ? AND user_id = ?", classroomID, uid).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count classroom %d members: %w", classroomID, err)
	}
	return count > 0, nil
}
