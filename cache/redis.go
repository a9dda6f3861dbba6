package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanjiv-madhavan/natours-api/constants"
)

// RevocationStore records "every token issued up to T is void" markers, one
// global and one per user. Markers expire together with the longest-lived
// token they could affect.
type RevocationStore struct {
	redis *RedisClient
	ttl   time.Duration
}

func NewRevocationStore(client *RedisClient, tokenValidity time.Duration) *RevocationStore {
	return &RevocationStore{redis: client, ttl: tokenValidity}
}

func (s *RevocationStore) RevokeUser(ctx context.Context, userID string, at time.Time) error {
	if err := s.redis.Client.Set(ctx, userKey(userID), at.Unix(), s.ttl).Err(); err != nil {
		s.redis.logger.Error("Token invalidation failed", slog.String("user", userID), slog.Any("error", err))
		return err
	}
	return nil
}

func (s *RevocationStore) RevokeAll(ctx context.Context, at time.Time) error {
	if err := s.redis.Client.Set(ctx, constants.GlobalInvalidationKey, at.Unix(), s.ttl).Err(); err != nil {
		s.redis.logger.Error("Global invalidation failed", slog.Any("error", err))
		return err
	}
	return nil
}

// RevokedAt returns the latest revocation marker that applies to userID, or
// the zero time when there is none.
func (s *RevocationStore) RevokedAt(ctx context.Context, userID string) (time.Time, error) {
	global, err := s.get(ctx, constants.GlobalInvalidationKey)
	if err != nil {
		return time.Time{}, err
	}
	user, err := s.get(ctx, userKey(userID))
	if err != nil {
		return time.Time{}, err
	}
	latest := max(global, user)
	if latest == 0 {
		return time.Time{}, nil
	}
	return time.Unix(latest, 0), nil
}

func (s *RevocationStore) get(ctx context.Context, key string) (int64, error) {
	value, err := s.redis.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		s.redis.logger.Error("Failed to retrieve invalidation", slog.String("key", key), slog.Any("error", err))
		return 0, err
	}
	timestamp, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		s.redis.logger.Error("Malformed invalidation marker", slog.String("key", key), slog.Any("error", err))
		return 0, err
	}
	return timestamp, nil
}

func userKey(userID string) string {
	return constants.UserInvalidation + ":" + userID
}

// NoopRevocationStore is used when no redis address is configured. Logout and
// global revocation are accepted but have no effect.
type NoopRevocationStore struct{}

func (NoopRevocationStore) RevokeUser(context.Context, string, time.Time) error { return nil }
func (NoopRevocationStore) RevokeAll(context.Context, time.Time) error          { return nil }
func (NoopRevocationStore) RevokedAt(context.Context, string) (time.Time, error) {
	return time.Time{}, nil
}
