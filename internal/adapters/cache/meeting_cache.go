// Package cache keeps active meeting records in redis so signaling joins do
// not hit the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/classmeet/internal/domain"
	"github.com/dkeye/classmeet/internal/meeting"
)

var errMeetingEnded = errors.New("cached meeting already ended")

type RedisMeetingCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisMeetingCache(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisMeetingCache {
	if client == nil {
		panic("redis client cannot be nil for RedisMeetingCache")
	}
	if keyPrefix == "" {
		keyPrefix = "meet:"
	}
	return &RedisMeetingCache{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (c *RedisMeetingCache) activeKey(code domain.MeetingCode) string {
	return fmt.Sprintf("%smeeting:active:%s", c.keyPrefix, code)
}

func (c *RedisMeetingCache) Get(ctx context.Context, code domain.MeetingCode) (*domain.Meeting, error) {
	key := c.activeKey(code)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, meeting.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	var m domain.Meeting
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("redis: decode %s: %w", key, err)
	}
	return &m, nil
}

// Set caches an active meeting. It never replaces an ended marker of the
// same meeting, so a lookup that read the store before the meeting ended
// cannot bring it back.
func (c *RedisMeetingCache) Set(ctx context.Context, m *domain.Meeting) error {
	key := c.activeKey(m.Code)
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("redis: encode %s: %w", key, err)
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var prev domain.Meeting
			if json.Unmarshal(cur, &prev) == nil && prev.MeetingID == m.MeetingID && !prev.Active {
				return errMeetingEnded
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, c.ttl)
			return nil
		})
		return err
	}, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errMeetingEnded), errors.Is(err, redis.TxFailedErr):
		log.Debug().Str("module", "cache").Str("meeting", string(m.Code)).Msg("stale meeting not cached")
		return nil
	default:
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
}

// MarkEnded replaces the cached entry with the ended meeting so readers fall
// through to the store and stale writers are refused.
func (c *RedisMeetingCache) MarkEnded(ctx context.Context, m *domain.Meeting) error {
	key := c.activeKey(m.Code)
	ended := *m
	ended.Active = false
	raw, err := json.Marshal(&ended)
	if err != nil {
		return fmt.Errorf("redis: encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}
