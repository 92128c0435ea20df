// Package meeting is the meeting registry: durable meeting records, short
// code allocation, the active/ended lifecycle and join authorization.
package meeting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/dkeye/classmeet/internal/domain"
)

type Service struct {
	repo       Repository
	classrooms ClassroomDirectory
	cache      Cache
	codes      CodeSource
	now        func() time.Time

	creating singleflight.Group
}

type Option func(*Service)

func WithCache(c Cache) Option           { return func(s *Service) { s.cache = c } }
func WithCodeSource(c CodeSource) Option { return func(s *Service) { s.codes = c } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, classrooms ClassroomDirectory, opts ...Option) *Service {
	if repo == nil {
		panic("meeting repository cannot be nil")
	}
	if classrooms == nil {
		panic("classroom directory cannot be nil")
	}
	s := &Service{
		repo:       repo,
		classrooms: classrooms,
		codes:      RandomCodes(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateClassroomMeeting returns the classroom's active meeting, creating it
// when there is none. Only the classroom teacher may call it.
func (s *Service) CreateClassroomMeeting(ctx context.Context, classroomID uint, host domain.UserID) (*domain.Meeting, error) {
	logger := log.With().Str("module", "meeting").Uint("classroom", classroomID).Str("host", host.String()).Logger()

	classroom, err := s.classrooms.FindClassroom(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	if classroom.TeacherID != host {
		logger.Warn().Msg("non-teacher tried to start a classroom meeting")
		return nil, ErrForbidden
	}

	key := fmt.Sprintf("classroom:%d", classroomID)
	return s.getOrCreate(ctx, key,
		func() (*domain.Meeting, error) { return s.repo.FindActiveByClassroom(ctx, classroomID) },
		func(m *domain.Meeting) {
			id := classroomID
			m.ClassroomID = &id
			m.HostUserID = host
			m.Title = classroom.Name + " - Meeting"
		})
}

// CreateAdHocMeeting returns the host's active ad-hoc meeting, creating it
// when there is none.
func (s *Service) CreateAdHocMeeting(ctx context.Context, host domain.UserID, hostName string) (*domain.Meeting, error) {
	title := "Meeting"
	if hostName != "" {
		title = hostName + "'s Meeting"
	}
	key := "host:" + host.String()
	return s.getOrCreate(ctx, key,
		func() (*domain.Meeting, error) { return s.repo.FindActiveAdHocByHost(ctx, host) },
		func(m *domain.Meeting) {
			m.HostUserID = host
			m.Title = title
		})
}

func (s *Service) getOrCreate(
	ctx context.Context,
	key string,
	existing func() (*domain.Meeting, error),
	fill func(*domain.Meeting),
) (*domain.Meeting, error) {
	v, err, _ := s.creating.Do(key, func() (interface{}, error) {
		m, err := existing()
		switch {
		case err == nil:
			log.Info().Str("module", "meeting").Str("key", key).Str("meeting", string(m.Code)).Msg("active meeting already exists")
			return m, nil
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
		return s.allocate(ctx, fill)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Meeting), nil
}

// allocate persists a new active meeting, drawing a fresh code after every
// uniqueness violation up to MaxCodeAttempts.
func (s *Service) allocate(ctx context.Context, fill func(*domain.Meeting)) (*domain.Meeting, error) {
	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		code, err := s.codes.Next()
		if err != nil {
			return nil, err
		}
		active := string(code)
		m := &domain.Meeting{
			MeetingID:  uuid.NewString(),
			Code:       code,
			ActiveCode: &active,
			Active:     true,
			CreatedAt:  s.now(),
		}
		fill(m)

		err = s.repo.Create(ctx, m)
		if err == nil {
			log.Info().Str("module", "meeting").Str("meeting", string(code)).Str("meeting_id", m.MeetingID).Int("attempts", attempt).Msg("meeting created")
			return m, nil
		}
		if !errors.Is(err, ErrDuplicateCode) {
			return nil, fmt.Errorf("meeting: save: %w", err)
		}
		log.Warn().Str("module", "meeting").Str("meeting", string(code)).Msgf("meeting code collision, retrying (attempt %d/%d)", attempt, MaxCodeAttempts)
	}
	log.Error().Str("module", "meeting").Int("attempts", MaxCodeAttempts).Msg("meeting code allocation exhausted")
	return nil, ErrCodeExhausted
}

// JoinMeeting authorizes uid for the active meeting with the given code.
// Classroom meetings admit the teacher and classroom members only.
func (s *Service) JoinMeeting(ctx context.Context, code domain.MeetingCode, uid domain.UserID) (*domain.Meeting, error) {
	m, err := s.LookupActiveMeeting(ctx, code)
	if err != nil {
		return nil, err
	}
	if !m.IsClassroomMeeting() {
		return m, nil
	}
	classroom, err := s.classrooms.FindClassroom(ctx, *m.ClassroomID)
	if err != nil {
		return nil, err
	}
	if classroom.TeacherID == uid {
		return m, nil
	}
	member, err := s.classrooms.IsMember(ctx, classroom.ID, uid)
	if err != nil {
		return nil, err
	}
	if !member {
		log.Warn().Str("module", "meeting").Str("meeting", string(code)).Str("user", uid.String()).Msg("user is not a classroom member")
		return nil, ErrForbidden
	}
	return m, nil
}

// EndMeeting marks the active meeting ended. Only its host may end it.
func (s *Service) EndMeeting(ctx context.Context, code domain.MeetingCode, uid domain.UserID) error {
	m, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		return err
	}
	if m.HostUserID != uid {
		return ErrNotHost
	}
	ended := s.now()
	m.Active = false
	m.EndedAt = &ended
	m.ActiveCode = nil
	if err := s.repo.MarkEnded(ctx, m); err != nil {
		return fmt.Errorf("meeting: mark ended: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.MarkEnded(ctx, m); err != nil {
			log.Error().Err(err).Str("module", "meeting").Str("meeting", string(code)).Msg("cache mark ended failed")
		}
	}
	log.Info().Str("module", "meeting").Str("meeting", string(code)).Str("host", uid.String()).Msg("meeting ended")
	return nil
}

// MeetingStatus returns the latest meeting that used the code, ended or not.
func (s *Service) MeetingStatus(ctx context.Context, code domain.MeetingCode) (*domain.Meeting, error) {
	return s.repo.FindLatestByCode(ctx, code)
}

// LookupActiveMeeting resolves an active meeting, reading through the cache
// when one is configured. Inactive meetings are reported as ErrNotFound.
func (s *Service) LookupActiveMeeting(ctx context.Context, code domain.MeetingCode) (*domain.Meeting, error) {
	if s.cache != nil {
		m, err := s.cache.Get(ctx, code)
		if err == nil && m.Active {
			return m, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("module", "meeting").Str("meeting", string(code)).Msg("cache read failed, falling back to store")
		}
	}
	m, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, m); err != nil {
			log.Warn().Err(err).Str("module", "meeting").Str("meeting", string(code)).Msg("cache write failed")
		}
	}
	return m, nil
}
