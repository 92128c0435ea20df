package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/classmeet/internal/domain"
	"github.com/dkeye/classmeet/internal/meeting"
	"github.com/dkeye/classmeet/internal/token"
)

// MeetingService is the registry surface the REST API needs.
type MeetingService interface {
	CreateClassroomMeeting(ctx context.Context, classroomID uint, host domain.UserID) (*domain.Meeting, error)
	CreateAdHocMeeting(ctx context.Context, host domain.UserID, hostName string) (*domain.Meeting, error)
	JoinMeeting(ctx context.Context, code domain.MeetingCode, uid domain.UserID) (*domain.Meeting, error)
	EndMeeting(ctx context.Context, code domain.MeetingCode, uid domain.UserID) error
	MeetingStatus(ctx context.Context, code domain.MeetingCode) (*domain.Meeting, error)
}

// RoomCloser ends the live room after the meeting record is ended.
type RoomCloser interface {
	CloseRoom(code domain.MeetingCode, from domain.UserID) bool
}

type MeetingResponse struct {
	ID                 uint               `json:"id"`
	MeetingID          string             `json:"meetingId"`
	MeetingCode        domain.MeetingCode `json:"meetingCode"`
	Title              string             `json:"title"`
	ClassroomID        *uint              `json:"classroomId"`
	HostUserID         domain.UserID      `json:"hostUserId"`
	Active             bool               `json:"active"`
	CreatedAt          time.Time          `json:"createdAt"`
	EndedAt            *time.Time         `json:"endedAt"`
	SignalingToken     string             `json:"signalingToken,omitempty"`
	IsClassroomMeeting bool               `json:"isClassroomMeeting"`
}

type MeetingHandler struct {
	svc   MeetingService
	rooms RoomCloser
	now   func() time.Time
}

func NewMeetingHandler(svc MeetingService, rooms RoomCloser) *MeetingHandler {
	return &MeetingHandler{svc: svc, rooms: rooms, now: time.Now}
}

func (h *MeetingHandler) response(m *domain.Meeting) MeetingResponse {
	resp := MeetingResponse{
		ID:                 m.ID,
		MeetingID:          m.MeetingID,
		MeetingCode:        m.Code,
		Title:              m.Title,
		ClassroomID:        m.ClassroomID,
		HostUserID:         m.HostUserID,
		Active:             m.Active,
		CreatedAt:          m.CreatedAt,
		EndedAt:            m.EndedAt,
		IsClassroomMeeting: m.IsClassroomMeeting(),
	}
	if m.Active {
		resp.SignalingToken = token.Encode(m.MeetingID, h.now())
	}
	return resp
}

func (h *MeetingHandler) CreateClassroomMeeting(c *gin.Context) {
	var req struct {
		ClassroomID uint `json:"classroomId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "classroomId is required"})
		return
	}
	uid, _ := currentUser(c)
	m, err := h.svc.CreateClassroomMeeting(c.Request.Context(), req.ClassroomID, uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.response(m))
}

func (h *MeetingHandler) CreateNormalMeeting(c *gin.Context) {
	uid, name := currentUser(c)
	m, err := h.svc.CreateAdHocMeeting(c.Request.Context(), uid, name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.response(m))
}

func (h *MeetingHandler) Join(c *gin.Context) {
	var req struct {
		MeetingCode string `json:"meetingCode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "meetingCode is required"})
		return
	}
	uid, _ := currentUser(c)
	m, err := h.svc.JoinMeeting(c.Request.Context(), domain.NormalizeMeetingCode(req.MeetingCode), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.response(m))
}

func (h *MeetingHandler) End(c *gin.Context) {
	code := domain.NormalizeMeetingCode(c.Query("meetingCode"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "meetingCode is required"})
		return
	}
	uid, _ := currentUser(c)
	if err := h.svc.EndMeeting(c.Request.Context(), code, uid); err != nil {
		writeError(c, err)
		return
	}
	if h.rooms != nil {
		h.rooms.CloseRoom(code, uid)
	}
	c.Status(http.StatusNoContent)
}

func (h *MeetingHandler) Status(c *gin.Context) {
	code := domain.NormalizeMeetingCode(c.Param("meetingCode"))
	m, err := h.svc.MeetingStatus(c.Request.Context(), code)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := h.response(m)
	resp.SignalingToken = ""
	c.JSON(http.StatusOK, resp)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, meeting.ErrNotFound), errors.Is(err, meeting.ErrClassroomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, meeting.ErrForbidden), errors.Is(err, meeting.ErrNotHost):
		status = http.StatusForbidden
	case errors.Is(err, meeting.ErrCodeExhausted):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
