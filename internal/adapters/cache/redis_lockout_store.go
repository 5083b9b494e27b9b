package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/talentbase/auth-service/internal/ports"
)

// Hash fields of one lockout entry. The counter and the lock live in the
// same hash so a single HGETALL answers the pre-login check.
const (
	lockoutKeyPrefix = "auth:lockout:"
	fieldFails       = "fails"
	fieldLockedUntil = "locked_until"

	// How long a partial failure streak survives without new failures.
	// Shorter than a day: stale counters from an old typo session should
	// not push a later genuine mistake over the threshold.
	failStreakTTL = time.Hour
)

// RedisLockoutStore keeps per-account failed-login state in Redis. Counting
// here instead of Postgres keeps the hot failure path off the users table;
// losing the state on a cache flush only resets the throttle, never locks
// anyone out.
type RedisLockoutStore struct {
	client *redis.Client
}

func NewRedisLockoutStore(client *redis.Client) *RedisLockoutStore {
	return &RedisLockoutStore{client: client}
}

func (s *RedisLockoutStore) Get(ctx context.Context, key string) (ports.LockoutState, error) {
	data, err := s.client.HGetAll(ctx, lockoutKeyPrefix+key).Result()
	if err != nil {
		return ports.LockoutState{}, err
	}

	var state ports.LockoutState
	if n, convErr := strconv.Atoi(data[fieldFails]); convErr == nil {
		state.FailedCount = n
	}
	if unix, convErr := strconv.ParseInt(data[fieldLockedUntil], 10, 64); convErr == nil && unix > 0 {
		t := time.Unix(unix, 0).UTC()
		state.LockedUntil = &t
	}
	return state, nil
}

// RecordFailure bumps the failure counter and, at the threshold, arms the
// lock. HINCRBY is atomic, so two concurrent failed logins cannot both read
// the same count; the TTL is refreshed on every failure so the streak window
// slides with the attack.
func (s *RedisLockoutStore) RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	redisKey := lockoutKeyPrefix + key

	count, err := s.client.HIncrBy(ctx, redisKey, fieldFails, 1).Result()
	if err != nil {
		return ports.LockoutState{}, err
	}

	state := ports.LockoutState{FailedCount: int(count)}
	if int(count) < threshold {
		_ = s.client.Expire(ctx, redisKey, failStreakTTL).Err()
		return state, nil
	}

	lockedUntil := now.Add(lockoutWindow).UTC()
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, redisKey, fieldLockedUntil, lockedUntil.Unix())
		// Keep the entry slightly past the lock expiry so Get still reports
		// the spent lock instead of a fresh zero state.
		p.Expire(ctx, redisKey, lockoutWindow+failStreakTTL)
		return nil
	})
	if err != nil {
		return ports.LockoutState{}, err
	}
	state.LockedUntil = &lockedUntil
	return state, nil
}

// Clear drops the whole entry after a successful login.
func (s *RedisLockoutStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, lockoutKeyPrefix+key).Err()
}
