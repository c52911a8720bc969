package locks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 2 * time.Minute

// releaseScript deletes the key only while it still holds this owner's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a best-effort mutual exclusion lock backed by SET NX with a TTL. The TTL bounds
// how long a crashed holder blocks other replicas.
type RedisLock struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	token  func() (string, error)
}

// NewRedisLock constructs a lock on key.
func NewRedisLock(client redis.Cmdable, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("locks: redis client is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("locks: key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl, token: randomToken}, nil
}

// TryLock attempts to take the lock without waiting. ok is false when another owner holds it.
func (l *RedisLock) TryLock(ctx context.Context) (func(context.Context) error, bool, error) {
	token, err := l.token()
	if err != nil {
		return nil, false, fmt.Errorf("locks: generate token: %w", err)
	}
	acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("locks: redis setnx failed: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}

	unlock := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("locks: release failed: %w", err)
		}
		return nil
	}
	return unlock, true, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
