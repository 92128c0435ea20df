package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/classmeet/internal/app"
	"github.com/dkeye/classmeet/internal/app/orch"
	"github.com/dkeye/classmeet/internal/config"
	"github.com/dkeye/classmeet/internal/core"
	"github.com/dkeye/classmeet/internal/domain"
	"github.com/dkeye/classmeet/internal/meeting"
	"github.com/dkeye/classmeet/internal/token"
)

var secret = []byte("test-secret")

type mockService struct{ mock.Mock }

func (m *mockService) CreateClassroomMeeting(ctx context.Context, id uint, host domain.UserID) (*domain.Meeting, error) {
	args := m.Called(id, host)
	mt, _ := args.Get(0).(*domain.Meeting)
	return mt, args.Error(1)
}

func (m *mockService) CreateAdHocMeeting(ctx context.Context, host domain.UserID, name string) (*domain.Meeting, error) {
	args := m.Called(host, name)
	mt, _ := args.Get(0).(*domain.Meeting)
	return mt, args.Error(1)
}

func (m *mockService) JoinMeeting(ctx context.Context, code domain.MeetingCode, uid domain.UserID) (*domain.Meeting, error) {
	args := m.Called(code, uid)
	mt, _ := args.Get(0).(*domain.Meeting)
	return mt, args.Error(1)
}

func (m *mockService) EndMeeting(ctx context.Context, code domain.MeetingCode, uid domain.UserID) error {
	return m.Called(code, uid).Error(0)
}

func (m *mockService) MeetingStatus(ctx context.Context, code domain.MeetingCode) (*domain.Meeting, error) {
	args := m.Called(code)
	mt, _ := args.Get(0).(*domain.Meeting)
	return mt, args.Error(1)
}

type nopConn struct{ closed bool }

func (c *nopConn) TrySend(core.Frame) error { return nil }
func (c *nopConn) Close(core.CloseCode)     { c.closed = true }

func setup(t *testing.T) (*gin.Engine, *mockService, *orch.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := new(mockService)
	o := &orch.Orchestrator{Rooms: core.NewRoomTable(), Registry: app.NewRegistry()}
	cfg := &config.Config{Mode: "test", Secret: string(secret)}
	return SetupRouter(context.Background(), cfg, o, svc), svc, o
}

func do(t *testing.T, r *gin.Engine, method, path string, body any, uid domain.UserID) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid > 0 {
		tok, err := SignToken(secret, uid, "Ada", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func activeMeeting() *domain.Meeting {
	return &domain.Meeting{
		ID: 4, MeetingID: "0c8a3c5e-0000-4000-8000-000000000004", Code: "AB12CD",
		HostUserID: 1, Title: "Ada's Meeting", Active: true, CreatedAt: time.Now(),
	}
}

func TestHealthz(t *testing.T) {
	r, _, _ := setup(t)
	w := do(t, r, http.MethodGet, "/healthz", nil, 0)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_Rejections(t *testing.T) {
	r, _, _ := setup(t)

	w := do(t, r, http.MethodPost, "/api/meetings/createNormalMeeting", nil, 0)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	for _, header := range []string{"Token abc", "Bearer", "Bearer not.a.jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}

	expired, err := SignToken(secret, 1, "", jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")

	forged, err := SignToken([]byte("other"), 1, "", nil)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestClaimUserID(t *testing.T) {
	id, err := claimUserID(float64(7))
	require.NoError(t, err)
	assert.Equal(t, domain.UserID(7), id)

	id, err = claimUserID("8")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID(8), id)

	for _, bad := range []any{nil, 1.5, float64(-1), "x", true} {
		_, err := claimUserID(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestCreateNormalMeeting_IssuesSignalingToken(t *testing.T) {
	r, svc, _ := setup(t)
	m := activeMeeting()
	svc.On("CreateAdHocMeeting", domain.UserID(1), "Ada").Return(m, nil).Once()

	w := do(t, r, http.MethodPost, "/api/meetings/createNormalMeeting", nil, 1)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp MeetingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.MeetingCode("AB12CD"), resp.MeetingCode)
	assert.False(t, resp.IsClassroomMeeting)
	claims, err := token.Decode(resp.SignalingToken)
	require.NoError(t, err)
	assert.Equal(t, m.MeetingID, claims.MeetingID)
	svc.AssertExpectations(t)
}

func TestCreateClassroomMeeting(t *testing.T) {
	r, svc, _ := setup(t)
	classroom := uint(7)
	m := activeMeeting()
	m.ClassroomID = &classroom
	svc.On("CreateClassroomMeeting", uint(7), domain.UserID(1)).Return(m, nil).Once()
	svc.On("CreateClassroomMeeting", uint(7), domain.UserID(2)).Return(nil, meeting.ErrForbidden).Once()
	svc.On("CreateClassroomMeeting", uint(9), domain.UserID(1)).Return(nil, meeting.ErrClassroomNotFound).Once()

	w := do(t, r, http.MethodPost, "/api/meetings/createClassroomMeeting", gin.H{"classroomId": 7}, 1)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"isClassroomMeeting":true`)

	w = do(t, r, http.MethodPost, "/api/meetings/createClassroomMeeting", gin.H{"classroomId": 7}, 2)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPost, "/api/meetings/createClassroomMeeting", gin.H{"classroomId": 9}, 1)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/api/meetings/createClassroomMeeting", gin.H{}, 1)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoin_NormalizesCodeAndMapsErrors(t *testing.T) {
	r, svc, _ := setup(t)
	svc.On("JoinMeeting", domain.MeetingCode("AB12CD"), domain.UserID(2)).Return(activeMeeting(), nil).Once()
	svc.On("JoinMeeting", domain.MeetingCode("ZZZZZZ"), domain.UserID(2)).Return(nil, meeting.ErrNotFound).Once()
	svc.On("JoinMeeting", domain.MeetingCode("BROKEN"), domain.UserID(2)).Return(nil, assert.AnError).Once()

	w := do(t, r, http.MethodPost, "/api/meetings/join", gin.H{"meetingCode": " ab12cd"}, 2)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "signalingToken")

	w = do(t, r, http.MethodPost, "/api/meetings/join", gin.H{"meetingCode": "zzzzzz"}, 2)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/api/meetings/join", gin.H{"meetingCode": "BROKEN"}, 2)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())

	w = do(t, r, http.MethodPost, "/api/meetings/join", gin.H{}, 2)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnd_ClosesLiveRoom(t *testing.T) {
	r, svc, o := setup(t)
	conn := &nopConn{}
	_, err := o.Rooms.Admit("AB12CD", core.RoomMeta{HostUserID: 1}, core.Participant{SID: "s1", UserID: 2, Conn: conn})
	require.NoError(t, err)

	svc.On("EndMeeting", domain.MeetingCode("AB12CD"), domain.UserID(2)).Return(meeting.ErrNotHost).Once()
	w := do(t, r, http.MethodPost, "/api/meetings/end?meetingCode=AB12CD", nil, 2)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, conn.closed)

	svc.On("EndMeeting", domain.MeetingCode("AB12CD"), domain.UserID(1)).Return(nil).Once()
	w = do(t, r, http.MethodPost, "/api/meetings/end?meetingCode=ab12cd", nil, 1)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, conn.closed)
	assert.Empty(t, o.Rooms.List())

	w = do(t, r, http.MethodPost, "/api/meetings/end", nil, 1)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatus_EndedMeetingHasNoToken(t *testing.T) {
	r, svc, _ := setup(t)
	m := activeMeeting()
	ended := time.Now()
	m.Active, m.EndedAt = false, &ended
	svc.On("MeetingStatus", domain.MeetingCode("AB12CD")).Return(m, nil).Once()

	w := do(t, r, http.MethodGet, "/api/meetings/status/ab12cd", nil, 1)
	require.Equal(t, http.StatusOK, w.Code)
	var resp MeetingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Active)
	assert.Empty(t, resp.SignalingToken)
	assert.NotNil(t, resp.EndedAt)
}

func TestRooms_ListsLiveRooms(t *testing.T) {
	r, _, o := setup(t)
	_, err := o.Rooms.Admit("AB12CD", core.RoomMeta{}, core.Participant{SID: "s1", UserID: 1, Conn: &nopConn{}})
	require.NoError(t, err)

	w := do(t, r, http.MethodGet, "/api/rooms", nil, 1)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rooms":[{"meetingCode":"AB12CD","participantCount":1}]}`, w.Body.String())
}
