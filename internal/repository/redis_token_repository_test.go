package repository

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-auth/internal/model"
	"github.com/iliyamo/account-auth/internal/utils"
)

func newRedisRepoTest(t *testing.T) (*RedisTokenRepo, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisTokenRepo(rdb, "test"), mr
}

func saveRaw(t *testing.T, repo *RedisTokenRepo, raw, userID string, ttl time.Duration) model.RefreshToken {
	t.Helper()
	now := time.Now().UTC()
	rec := model.RefreshToken{
		UserID:    userID,
		TokenHash: utils.HashRefreshRaw(raw),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	require.NoError(t, repo.Save(context.Background(), rec))
	return rec
}

func TestRedisTokenRepoSaveAndFind(t *testing.T) {
	repo, mr := newRedisRepoTest(t)
	rec := saveRaw(t, repo, "raw-1", "u-1", time.Hour)

	got, err := repo.FindByTokenAndUserID(context.Background(), "raw-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, rec.TokenHash, got.TokenHash)
	assert.True(t, got.ExpiresAt.Equal(rec.ExpiresAt))
	assert.Nil(t, got.RevokedAt)
	assert.True(t, got.IsValid(time.Now()))

	assert.True(t, mr.Exists("test:tok:"+rec.TokenHash))
	members, err := mr.SMembers("test:user:u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{rec.TokenHash}, members)
}

func TestRedisTokenRepoFindWrongOwner(t *testing.T) {
	repo, _ := newRedisRepoTest(t)
	saveRaw(t, repo, "raw-1", "u-1", time.Hour)

	_, err := repo.FindByTokenAndUserID(context.Background(), "raw-1", "u-2")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByTokenAndUserID(context.Background(), "unknown", "u-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisTokenRepoRevokeIsIdempotent(t *testing.T) {
	repo, _ := newRedisRepoTest(t)
	ctx := context.Background()
	rec := saveRaw(t, repo, "raw-1", "u-1", time.Hour)

	first, err := repo.RevokeByHash(ctx, rec.TokenHash)
	require.NoError(t, err)
	assert.True(t, first)

	got, err := repo.FindByTokenAndUserID(ctx, "raw-1", "u-1")
	require.NoError(t, err)
	require.NotNil(t, got.RevokedAt)
	revokedAt := *got.RevokedAt

	second, err := repo.RevokeByHash(ctx, rec.TokenHash)
	require.NoError(t, err)
	assert.False(t, second)

	again, err := repo.FindByTokenAndUserID(ctx, "raw-1", "u-1")
	require.NoError(t, err)
	assert.True(t, again.RevokedAt.Equal(revokedAt))

	missing, err := repo.RevokeByHash(ctx, "no-such-hash")
	require.NoError(t, err)
	assert.False(t, missing)
}

func TestRedisTokenRepoConcurrentRevokeHasOneWinner(t *testing.T) {
	repo, _ := newRedisRepoTest(t)
	rec := saveRaw(t, repo, "raw-1", "u-1", time.Hour)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.RevokeByHash(context.Background(), rec.TokenHash)
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestRedisTokenRepoRevokeAll(t *testing.T) {
	repo, mr := newRedisRepoTest(t)
	ctx := context.Background()
	a := saveRaw(t, repo, "raw-a", "u-1", time.Hour)
	saveRaw(t, repo, "raw-b", "u-1", time.Hour)
	saveRaw(t, repo, "raw-c", "u-2", time.Hour)
	_, err := repo.RevokeByHash(ctx, a.TokenHash)
	require.NoError(t, err)

	// A token key that already expired out of Redis is dropped from the set.
	saveRaw(t, repo, "raw-d", "u-1", time.Minute)
	mr.FastForward(2 * time.Minute)

	n, err := repo.RevokeAllByUserID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for _, raw := range []string{"raw-a", "raw-b"} {
		got, err := repo.FindByTokenAndUserID(ctx, raw, "u-1")
		require.NoError(t, err)
		assert.False(t, got.IsValid(time.Now()), raw)
	}
	other, err := repo.FindByTokenAndUserID(ctx, "raw-c", "u-2")
	require.NoError(t, err)
	assert.True(t, other.IsValid(time.Now()))

	// raw-a left the set when raw-d was saved; raw-d when revoke-all found it gone.
	members, err := mr.SMembers("test:user:u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{utils.HashRefreshRaw("raw-b")}, members)
}

func TestRedisTokenRepoUserSetStaysBounded(t *testing.T) {
	repo, mr := newRedisRepoTest(t)
	ctx := context.Background()

	saveRaw(t, repo, "short", "u-1", time.Minute)
	assert.Greater(t, mr.TTL("test:user:u-1"), time.Duration(0))

	mr.FastForward(2 * time.Minute)
	live := saveRaw(t, repo, "long", "u-1", time.Hour)

	members, err := mr.SMembers("test:user:u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{live.TokenHash}, members)
	ttl := mr.TTL("test:user:u-1")
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	// Rotation: the revoked predecessor is dropped when its successor is saved.
	for i := 0; i < 5; i++ {
		_, err := repo.RevokeByHash(ctx, live.TokenHash)
		require.NoError(t, err)
		live = saveRaw(t, repo, "long-"+strconv.Itoa(i), "u-1", time.Hour)
	}
	members, err = mr.SMembers("test:user:u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{live.TokenHash}, members)

	// A shorter-lived token never shortens the set's lifetime.
	saveRaw(t, repo, "brief", "u-1", time.Minute)
	assert.Greater(t, mr.TTL("test:user:u-1"), 59*time.Minute)

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("test:user:u-1"))
}

func TestNewRedisTokenRepoDefaultPrefix(t *testing.T) {
	repo := NewRedisTokenRepo(nil, "")
	assert.Equal(t, DefaultKeyPrefix, repo.Prefix)
	assert.Equal(t, "auth", repo.Prefix)
}
