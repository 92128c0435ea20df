package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/classmeet/internal/domain"
	"github.com/dkeye/classmeet/internal/meeting"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisMeetingCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisMeetingCache(client, "test:", ttl), mr
}

func TestRedisMeetingCache_SetGetMarkEnded(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	classroom := uint(7)
	m := &domain.Meeting{ID: 3, MeetingID: "uuid-1", Code: "AB12CD", ClassroomID: &classroom, HostUserID: 1, Active: true}

	_, err := c.Get(ctx, "AB12CD")
	assert.ErrorIs(t, err, meeting.ErrNotFound)

	require.NoError(t, c.Set(ctx, m))
	assert.True(t, mr.Exists("test:meeting:active:AB12CD"))
	assert.Equal(t, time.Minute, mr.TTL("test:meeting:active:AB12CD"))

	got, err := c.Get(ctx, "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", got.MeetingID)
	assert.Equal(t, domain.UserID(1), got.HostUserID)
	require.NotNil(t, got.ClassroomID)
	assert.Equal(t, uint(7), *got.ClassroomID)

	require.NoError(t, c.MarkEnded(ctx, m))
	got, err = c.Get(ctx, "AB12CD")
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.True(t, m.Active, "caller's record is not modified")
}

func TestRedisMeetingCache_SetDoesNotReviveEndedMeeting(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	stale := &domain.Meeting{MeetingID: "uuid-1", Code: "AB12CD", HostUserID: 1, Active: true}

	require.NoError(t, c.MarkEnded(ctx, stale))
	require.NoError(t, c.Set(ctx, stale))

	got, err := c.Get(ctx, "AB12CD")
	require.NoError(t, err)
	assert.False(t, got.Active)

	reused := &domain.Meeting{MeetingID: "uuid-2", Code: "AB12CD", HostUserID: 4, Active: true}
	require.NoError(t, c.Set(ctx, reused))
	got, err = c.Get(ctx, "AB12CD")
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, "uuid-2", got.MeetingID)
}

func TestRedisMeetingCache_Expires(t *testing.T) {
	c, mr := newTestCache(t, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &domain.Meeting{Code: "AB12CD", Active: true}))
	mr.FastForward(2 * time.Second)

	_, err := c.Get(ctx, "AB12CD")
	assert.ErrorIs(t, err, meeting.ErrNotFound)
}

func TestRedisMeetingCache_CorruptEntry(t *testing.T) {
	c, mr := newTestCache(t, 0)
	require.NoError(t, mr.Set("test:meeting:active:AB12CD", "{not json"))

	_, err := c.Get(context.Background(), "AB12CD")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, meeting.ErrNotFound)
}
