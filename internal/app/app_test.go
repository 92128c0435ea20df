package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/classmeet/internal/core"
)

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DropFrame, p.OnBackPressure("AB12CD", core.Participant{}))

	p, err = ParsePolicy("kick")
	require.NoError(t, err)
	assert.Equal(t, KickMember, p.OnBackPressure("AB12CD", core.Participant{}))

	_, err = ParsePolicy("mark")
	assert.Error(t, err)
}

func TestJoinRateLimiter_BurstThenRefill(t *testing.T) {
	rl := NewJoinRateLimiter(1, 2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow(1))
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))
	assert.True(t, rl.Allow(2), "users are limited independently")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))
}

func TestJoinRateLimiter_Disabled(t *testing.T) {
	rl := NewJoinRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow(1))
	}
}

type closeRecorder struct {
	mu   sync.Mutex
	code core.CloseCode
}

func (c *closeRecorder) TrySend(core.Frame) error { return nil }
func (c *closeRecorder) Close(code core.CloseCode) {
	c.mu.Lock()
	c.code = code
	c.mu.Unlock()
}

func TestRegistry_BindCloseAll(t *testing.T) {
	r := NewRegistry()
	a, b := &closeRecorder{}, &closeRecorder{}

	r.Bind("a", a)
	r.Bind("b", b)
	assert.Equal(t, 2, r.Len())

	assert.Equal(t, 2, r.CloseAll(core.CloseGoingAway))
	assert.Equal(t, core.CloseGoingAway, a.code)
	assert.Equal(t, core.CloseGoingAway, b.code)

	r.Unbind("a")
	r.Unbind("b")
	assert.Zero(t, r.Len())
}
