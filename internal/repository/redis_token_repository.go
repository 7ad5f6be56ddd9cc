package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/account-auth/internal/model"
	"github.com/iliyamo/account-auth/internal/utils"
)

// Each token lives in a hash at <prefix>:tok:<token_hash> holding user_id,
// expires_at, created_at and, once revoked, revoked_at (unix nanoseconds).
// <prefix>:user:<user_id> is a set of the user's live token hashes.  Token
// keys expire with the token.  Save drops set members whose token is gone or
// revoked and keeps the set alive until its newest token expires.

// DefaultKeyPrefix namespaces token keys when no prefix is given.
const DefaultKeyPrefix = "auth"

// KEYS: token key, user set.  ARGV: hash, user_id, expires_at ns,
// created_at ns, expires_at ms, now ms, token key prefix.
const saveScript = `
redis.call("HSET", KEYS[1], "user_id", ARGV[2], "expires_at", ARGV[3], "created_at", ARGV[4])
redis.call("PEXPIREAT", KEYS[1], ARGV[5])
for _, h in ipairs(redis.call("SMEMBERS", KEYS[2])) do
  local k = ARGV[7] .. h
  if redis.call("EXISTS", k) == 0 or redis.call("HEXISTS", k, "revoked_at") == 1 then
    redis.call("SREM", KEYS[2], h)
  end
end
redis.call("SADD", KEYS[2], ARGV[1])
if redis.call("PTTL", KEYS[2]) < tonumber(ARGV[5]) - tonumber(ARGV[6]) then
  redis.call("PEXPIREAT", KEYS[2], ARGV[5])
end
return 1
`

const revokeOneScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "revoked_at") then
  return 0
end
redis.call("HSET", KEYS[1], "revoked_at", ARGV[1])
return 1
`

const revokeAllScript = `
local members = redis.call("SMEMBERS", KEYS[1])
local n = 0
for _, h in ipairs(members) do
  local k = ARGV[1] .. h
  if redis.call("EXISTS", k) == 1 then
    if not redis.call("HGET", k, "revoked_at") then
      redis.call("HSET", k, "revoked_at", ARGV[2])
      n = n + 1
    end
  else
    redis.call("SREM", KEYS[1], h)
  end
end
return n
`

var (
	saveLua      = redis.NewScript(saveScript)
	revokeOneLua = redis.NewScript(revokeOneScript)
	revokeAllLua = redis.NewScript(revokeAllScript)
)

// RedisTokenRepo stores refresh tokens in Redis.  Revocation runs as a Lua
// script, so check-and-set is atomic across concurrent refreshes.
type RedisTokenRepo struct {
	RDB    redis.UniversalClient
	Prefix string
	Now    func() time.Time
}

func NewRedisTokenRepo(rdb redis.UniversalClient, prefix string) *RedisTokenRepo {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisTokenRepo{RDB: rdb, Prefix: prefix, Now: time.Now}
}

func (r *RedisTokenRepo) tokenKeyPrefix() string { return r.Prefix + ":tok:" }
func (r *RedisTokenRepo) tokenKey(hash string) string { return r.tokenKeyPrefix() + hash }
func (r *RedisTokenRepo) userKey(userID string) string { return r.Prefix + ":user:" + userID }

// Save stores t and indexes it under its owner.
func (r *RedisTokenRepo) Save(ctx context.Context, t model.RefreshToken) error {
	keys := []string{r.tokenKey(t.TokenHash), r.userKey(t.UserID)}
	return saveLua.Run(ctx, r.RDB, keys,
		t.TokenHash,
		t.UserID,
		strconv.FormatInt(t.ExpiresAt.UnixNano(), 10),
		strconv.FormatInt(t.CreatedAt.UnixNano(), 10),
		t.ExpiresAt.UnixMilli(),
		r.now().UnixMilli(),
		r.tokenKeyPrefix(),
	).Err()
}

// FindByTokenAndUserID loads the record for token if userID owns it.
func (r *RedisTokenRepo) FindByTokenAndUserID(ctx context.Context, token, userID string) (model.RefreshToken, error) {
	hash := utils.HashRefreshRaw(token)
	fields, err := r.RDB.HGetAll(ctx, r.tokenKey(hash)).Result()
	if err != nil {
		return model.RefreshToken{}, err
	}
	if len(fields) == 0 || fields["user_id"] != userID {
		return model.RefreshToken{}, ErrNotFound
	}

	t := model.RefreshToken{UserID: userID, TokenHash: hash}
	if t.ExpiresAt, err = parseNanos(fields["expires_at"]); err != nil {
		return model.RefreshToken{}, err
	}
	if t.CreatedAt, err = parseNanos(fields["created_at"]); err != nil {
		return model.RefreshToken{}, err
	}
	if v, ok := fields["revoked_at"]; ok {
		ts, err := parseNanos(v)
		if err != nil {
			return model.RefreshToken{}, err
		}
		t.RevokedAt = &ts
	}
	return t, nil
}

// RevokeByHash sets revoked_at unless already set.  False means the token
// is unknown, expired out of Redis, or already revoked.
func (r *RedisTokenRepo) RevokeByHash(ctx context.Context, tokenHash string) (bool, error) {
	n, err := revokeOneLua.Run(ctx, r.RDB, []string{r.tokenKey(tokenHash)}, r.nowNanos()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeAllByUserID revokes every live token of userID.
func (r *RedisTokenRepo) RevokeAllByUserID(ctx context.Context, userID string) (int64, error) {
	return revokeAllLua.Run(ctx, r.RDB, []string{r.userKey(userID)}, r.tokenKeyPrefix(), r.nowNanos()).Int64()
}

func (r *RedisTokenRepo) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *RedisTokenRepo) nowNanos() string {
	return strconv.FormatInt(r.now().UnixNano(), 10)
}

var errBadTimestamp = errors.New("redis token: bad timestamp")

func parseNanos(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, errBadTimestamp
	}
	return time.Unix(0, n).UTC(), nil
}
