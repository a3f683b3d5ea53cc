package session

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore keeps each session under prefix+chatID. Every save refreshes
// the TTL, so abandoned flows expire on their own.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(chatID int64) string {
	return r.prefix + strconv.FormatInt(chatID, 10)
}

func (r *RedisStore) Get(ctx context.Context, chatID int64) (*Session, error) {
	data, err := r.redis.Get(ctx, r.key(chatID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return New(), nil
		}
		return nil, errors.Wrap(err, "failed to get session")
	}

	s := New()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal session")
	}
	if s.Data == nil {
		s.Data = map[string]string{}
	}
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, chatID int64, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}
	if err := r.redis.Set(ctx, r.key(chatID), data, r.ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to save session")
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, chatID int64) error {
	if err := r.redis.Del(ctx, r.key(chatID)).Err(); err != nil {
		return errors.Wrap(err, "failed to clear session")
	}
	return nil
}
