package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "idempotency:"

// RedisStore shares reservations across replicas. Keys expire through Redis TTLs.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore constructs a Redis-backed store.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, prefix: redisKeyPrefix}
}

// Reserve implements Store. The reservation is a SET NX so only one request wins a key.
func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	pending, err := json.Marshal(Record{Fingerprint: fingerprint, ExpiresAt: now.UTC().Add(ttl)})
	if err != nil {
		return Reservation{}, fmt.Errorf("marshal reservation failed: %w", err)
	}

	redisKey := s.redisKey(key)
	// A second pass covers a record that expired between SET NX and GET.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, redisKey, pending, ttl).Result()
		if err != nil {
			return Reservation{}, fmt.Errorf("redis setnx failed: %w", err)
		}
		if ok {
			return Reservation{State: ReservationStateNew}, nil
		}

		record, found, err := s.load(ctx, redisKey)
		if err != nil {
			return Reservation{}, err
		}
		if !found {
			continue
		}
		if record.Fingerprint != fingerprint {
			return Reservation{}, ErrFingerprintMismatch
		}
		if record.Completed {
			return Reservation{State: ReservationStateCompleted, Record: record}, nil
		}
		return Reservation{State: ReservationStatePending, Record: record}, nil
	}
	return Reservation{State: ReservationStatePending}, nil
}

// SaveResponse implements Store.
func (s *RedisStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	redisKey := s.redisKey(key)
	existing, found, err := s.load(ctx, redisKey)
	if err != nil {
		return err
	}
	if found && existing.Fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}

	data, err := json.Marshal(completedRecord(fingerprint, resp, now.UTC().Add(ttl)))
	if err != nil {
		return fmt.Errorf("marshal response failed: %w", err)
	}
	if err := s.client.Set(ctx, redisKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Release implements Store. Only the holder of the fingerprint can release a key.
func (s *RedisStore) Release(ctx context.Context, key, fingerprint string) error {
	redisKey := s.redisKey(key)
	record, found, err := s.load(ctx, redisKey)
	if err != nil || !found {
		return err
	}
	if record.Fingerprint != fingerprint {
		return nil
	}
	if err := s.client.Del(ctx, redisKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, redisKey string) (Record, bool, error) {
	data, err := s.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("redis get failed: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, false, fmt.Errorf("unmarshal record failed: %w", err)
	}
	return record, true, nil
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + hashKey(key)
}
