package storage

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dkeye/classmeet/internal/domain"
	"github.com/dkeye/classmeet/internal/meeting"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(Options{
		Driver:      "sqlite",
		DSN:         fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newMeeting(code string, host domain.UserID, classroom *uint) *domain.Meeting {
	active := code
	return &domain.Meeting{
		MeetingID:   "id-" + code + "-" + host.String() + fmt.Sprint(time.Now().UnixNano()),
		Code:        domain.MeetingCode(code),
		ActiveCode:  &active,
		ClassroomID: classroom,
		HostUserID:  host,
		Title:       "Meeting",
		Active:      true,
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(Options{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMeetingRepository_CreateAndFind(t *testing.T) {
	repo := NewMeetingRepository(openTestDB(t))
	ctx := context.Background()

	m := newMeeting("AB12CD", 1, nil)
	require.NoError(t, repo.Create(ctx, m))
	assert.NotZero(t, m.ID)

	got, err := repo.FindActiveByCode(ctx, "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, m.MeetingID, got.MeetingID)
	assert.True(t, got.Active)

	_, err = repo.FindActiveByCode(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, meeting.ErrNotFound)
}

func TestMeetingRepository_ActiveCodeIsUnique(t *testing.T) {
	repo := NewMeetingRepository(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newMeeting("AB12CD", 1, nil)))
	err := repo.Create(ctx, newMeeting("AB12CD", 2, nil))
	assert.ErrorIs(t, err, meeting.ErrDuplicateCode)
}

func TestMeetingRepository_EndedCodeCanBeReused(t *testing.T) {
	repo := NewMeetingRepository(openTestDB(t))
	ctx := context.Background()

	first := newMeeting("AB12CD", 1, nil)
	require.NoError(t, repo.Create(ctx, first))

	ended := time.Now()
	first.Active = false
	first.EndedAt = &ended
	first.ActiveCode = nil
	require.NoError(t, repo.MarkEnded(ctx, first))

	_, err := repo.FindActiveByCode(ctx, "AB12CD")
	assert.ErrorIs(t, err, meeting.ErrNotFound)

	second := newMeeting("AB12CD", 2, nil)
	require.NoError(t, repo.Create(ctx, second))

	latest, err := repo.FindLatestByCode(ctx, "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, second.MeetingID, latest.MeetingID)

	assert.ErrorIs(t, repo.MarkEnded(ctx, &domain.Meeting{ID: 999}), meeting.ErrNotFound)
}

func TestMeetingRepository_GetOrCreateLookups(t *testing.T) {
	repo := NewMeetingRepository(openTestDB(t))
	ctx := context.Background()
	classroom := uint(7)

	require.NoError(t, repo.Create(ctx, newMeeting("CLASS1", 1, &classroom)))

	_, err := repo.FindActiveAdHocByHost(ctx, 1)
	assert.ErrorIs(t, err, meeting.ErrNotFound, "classroom meetings are not ad-hoc")

	require.NoError(t, repo.Create(ctx, newMeeting("ADHOC1", 1, nil)))

	adHoc, err := repo.FindActiveAdHocByHost(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingCode("ADHOC1"), adHoc.Code)

	byClass, err := repo.FindActiveByClassroom(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingCode("CLASS1"), byClass.Code)

	_, err = repo.FindActiveByClassroom(ctx, 8)
	assert.ErrorIs(t, err, meeting.ErrNotFound)
}

func TestClassroomDirectory(t *testing.T) {
	db := openTestDB(t)
	dir := NewClassroomDirectory(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.Classroom{ID: 7, Name: "Physics", TeacherID: 1}).Error)
	require.NoError(t, db.Create(&domain.ClassroomMember{ClassroomID: 7, UserID: 2}).Error)

	c, err := dir.FindClassroom(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Physics", c.Name)

	_, err = dir.FindClassroom(ctx, 8)
	assert.ErrorIs(t, err, meeting.ErrClassroomNotFound)

	ok, err := dir.IsMember(ctx, 7, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.IsMember(ctx, 7, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_OverSqlite(t *testing.T) {
	db := openTestDB(t)
	svc := meeting.NewService(NewMeetingRepository(db), NewClassroomDirectory(db))
	ctx := context.Background()

	m, err := svc.CreateAdHocMeeting(ctx, 5, "Ada")
	require.NoError(t, err)
	again, err := svc.CreateAdHocMeeting(ctx, 5, "Ada")
	require.NoError(t, err)
	assert.Equal(t, m.MeetingID, again.MeetingID)

	require.NoError(t, svc.EndMeeting(ctx, m.Code, 5))
	_, err = svc.LookupActiveMeeting(ctx, m.Code)
	assert.ErrorIs(t, err, meeting.ErrNotFound)

	status, err := svc.MeetingStatus(ctx, m.Code)
	require.NoError(t, err)
	assert.False(t, status.Active)
	assert.NotNil(t, status.EndedAt)
}
