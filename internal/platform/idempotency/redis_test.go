package idempotency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStoreReserveLifecycle(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	res, err := store.Reserve(ctx, "k1|u1", "fp", fixedTime, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, ReservationStateNew, res.State)
	assert.Equal(t, time.Hour, mr.TTL(store.redisKey("k1|u1")))

	res, err = store.Reserve(ctx, "k1|u1", "fp", fixedTime, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, ReservationStatePending, res.State)

	_, err = store.Reserve(ctx, "k1|u1", "other", fixedTime, time.Hour)
	assert.ErrorIs(t, err, ErrFingerprintMismatch)

	resp := Response{
		Status:  http.StatusCreated,
		Headers: http.Header{"Content-Type": {"application/json"}, "Content-Length": {"12"}},
		Body:    []byte(`{"ok":true}`),
	}
	require.NoError(t, store.SaveResponse(ctx, "k1|u1", "fp", resp, fixedTime, time.Hour))

	res, err = store.Reserve(ctx, "k1|u1", "fp", fixedTime, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, ReservationStateCompleted, res.State)
	assert.Equal(t, http.StatusCreated, res.Record.ResponseStatus)
	assert.Equal(t, []byte(`{"ok":true}`), res.Record.ResponseBody)
	assert.Equal(t, []string{"application/json"}, res.Record.ResponseHeaders["Content-Type"])
	assert.NotContains(t, res.Record.ResponseHeaders, "Content-Length")
}

func TestRedisStoreReleaseRequiresMatchingFingerprint(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, "k2|u1", "fp", fixedTime, time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.Release(ctx, "k2|u1", "someone-else"))
	assert.True(t, mr.Exists(store.redisKey("k2|u1")))

	require.NoError(t, store.Release(ctx, "k2|u1", "fp"))
	assert.False(t, mr.Exists(store.redisKey("k2|u1")))

	res, err := store.Reserve(ctx, "k2|u1", "fp", fixedTime, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, ReservationStateNew, res.State)
}

func TestRedisStoreReservationExpires(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, "k3|u1", "fp", fixedTime, time.Minute)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	res, err := store.Reserve(ctx, "k3|u1", "other", fixedTime, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, ReservationStateNew, res.State)
}

func TestRedisStoreSurfacesConnectionErrors(t *testing.T) {
	store, mr := setupRedisStore(t)
	mr.Close()

	_, err := store.Reserve(context.Background(), "k4|u1", "fp", fixedTime, time.Minute)
	assert.Error(t, err)
}

func TestMiddlewareWithRedisStoreReplays(t *testing.T) {
	store, _ := setupRedisStore(t)
	var calls int
	handler := Middleware(store)(countingHandler(&calls, http.StatusCreated))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newRequest(`{"paymentIntentId":"pi_9"}`, "redis-key", "u1"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newRequest(`{"paymentIntentId":"pi_9"}`, "redis-key", "u1"))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(replayHeaderName))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}
