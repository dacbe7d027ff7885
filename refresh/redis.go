package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rotateStatusNotFound int64 = 0
	rotateStatusExpired  int64 = 1
	rotateStatusReused   int64 = 2
	rotateStatusRotated  int64 = 3
)

// redisRecord is the JSON shape stored under a record key. Times are unix
// seconds so the rotate script can compare them with tonumber.
type redisRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}

type redisTombstone struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
}

const rotateScript = `
local record_key = KEYS[1]
local tomb_key = KEYS[2]
local next_key = KEYS[3]
local old_hash = ARGV[1]
local next_hash = ARGV[2]
local next_json = ARGV[3]
local now = tonumber(ARGV[4])
local user_prefix = ARGV[5]

local data = redis.call("GET", record_key)
if not data then
  local tomb = redis.call("GET", tomb_key)
  if tomb then
    return {2, tomb}
  end
  return {0}
end

local rec = cjson.decode(data)
local user_key = user_prefix .. rec.user_id

redis.call("DEL", record_key)
redis.call("SREM", user_key, old_hash)

if rec.expires_at <= now then
  return {1}
end

local tomb_ttl = rec.expires_at - now
if tomb_ttl < 1 then tomb_ttl = 1 end
redis.call("SET", tomb_key, cjson.encode({user_id = rec.user_id, tenant_id = rec.tenant_id}), "EX", tomb_ttl)

local nxt = cjson.decode(next_json)
nxt.user_id = rec.user_id
nxt.tenant_id = rec.tenant_id
local next_ttl = nxt.expires_at - now
if next_ttl < 1 then next_ttl = 1 end
redis.call("SET", next_key, cjson.encode(nxt), "EX", next_ttl)
redis.call("SADD", user_key, next_hash)
redis.call("EXPIRE", user_key, next_ttl)

return {3, data}
`

var rotateLua = redis.NewScript(rotateScript)

const deleteScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
local rec = cjson.decode(data)
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[2] .. rec.user_id, ARGV[1])
return 1
`

var deleteLua = redis.NewScript(deleteScript)

const deleteAllScript = `
local hashes = redis.call("SMEMBERS", KEYS[1])
local n = 0
for _, h in ipairs(hashes) do
  n = n + redis.call("DEL", ARGV[1] .. h)
end
redis.call("DEL", KEYS[1])
return n
`

var deleteAllLua = redis.NewScript(deleteAllScript)

// RedisStore is a Redis-backed Store. Record and tombstone keys carry native
// TTLs, so DeleteExpired has nothing to sweep. Rotation runs as one Lua
// script, which is what makes the consume-and-issue step atomic across
// processes.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore wraps the given client. prefix namespaces every key; empty
// means "authcore".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "authcore"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) recordKey(hash Hash) string {
	return s.prefix + ":rt:" + hash.Hex()
}

func (s *RedisStore) tombstoneKey(hash Hash) string {
	return s.prefix + ":rtc:" + hash.Hex()
}

func (s *RedisStore) userPrefix() string {
	return s.prefix + ":rtu:"
}

func (s *RedisStore) Create(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(toRedisRecord(rec))
	if err != nil {
		return err
	}

	ttl := time.Until(rec.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}

	userKey := s.userPrefix() + rec.UserID
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(rec.SecretHash), payload, ttl)
		pipe.SAdd(ctx, userKey, rec.SecretHash.Hex())
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, hash Hash) (Record, error) {
	data, err := s.redis.Get(ctx, s.recordKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec, err := decodeRedisRecord(data, hash)
	if err != nil {
		return Record{}, err
	}
	if rec.ExpiredAt(time.Now()) {
		return Record{}, ErrExpired
	}
	return rec, nil
}

func (s *RedisStore) Rotate(ctx context.Context, hash Hash, next Record) (Record, error) {
	nextPayload, err := json.Marshal(toRedisRecord(next))
	if err != nil {
		return Record{}, err
	}

	keys := []string{
		s.recordKey(hash),
		s.tombstoneKey(hash),
		s.recordKey(next.SecretHash),
	}
	args := []interface{}{
		hash.Hex(),
		next.SecretHash.Hex(),
		string(nextPayload),
		time.Now().Unix(),
		s.userPrefix(),
	}

	res, err := rotateLua.Run(ctx, s.redis, keys, args...).Slice()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(res) == 0 {
		return Record{}, fmt.Errorf("%w: empty rotate reply", ErrUnavailable)
	}
	status, ok := res[0].(int64)
	if !ok {
		return Record{}, fmt.Errorf("%w: malformed rotate reply", ErrUnavailable)
	}

	switch status {
	case rotateStatusNotFound:
		return Record{}, ErrNotFound
	case rotateStatusExpired:
		return Record{}, ErrExpired
	case rotateStatusReused:
		var t redisTombstone
		if len(res) > 1 {
			if raw, ok := res[1].(string); ok {
				_ = json.Unmarshal([]byte(raw), &t)
			}
		}
		return Record{}, &ReuseError{UserID: t.UserID, TenantID: t.TenantID}
	case rotateStatusRotated:
		if len(res) < 2 {
			return Record{}, fmt.Errorf("%w: malformed rotate reply", ErrUnavailable)
		}
		raw, ok := res[1].(string)
		if !ok {
			return Record{}, fmt.Errorf("%w: malformed rotate reply", ErrUnavailable)
		}
		return decodeRedisRecord([]byte(raw), hash)
	default:
		return Record{}, fmt.Errorf("%w: unknown rotate status %d", ErrUnavailable, status)
	}
}

func (s *RedisStore) Delete(ctx context.Context, hash Hash) error {
	err := deleteLua.Run(ctx, s.redis,
		[]string{s.recordKey(hash)},
		hash.Hex(), s.userPrefix(),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	n, err := deleteAllLua.Run(ctx, s.redis,
		[]string{s.userPrefix() + userID},
		s.prefix+":rt:",
	).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

// DeleteExpired is a no-op on Redis; key TTLs already bound growth.
func (s *RedisStore) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func toRedisRecord(rec Record) redisRecord {
	return redisRecord{
		ID:        rec.ID,
		UserID:    rec.UserID,
		TenantID:  rec.TenantID,
		IssuedAt:  rec.IssuedAt.Unix(),
		ExpiresAt: rec.ExpiresAt.Unix(),
	}
}

func decodeRedisRecord(data []byte, hash Hash) (Record, error) {
	var rr redisRecord
	if err := json.Unmarshal(data, &rr); err != nil {
		return Record{}, fmt.Errorf("%w: corrupt record: %v", ErrUnavailable, err)
	}
	return Record{
		ID:         rr.ID,
		UserID:     rr.UserID,
		TenantID:   rr.TenantID,
		SecretHash: hash,
		IssuedAt:   time.Unix(rr.IssuedAt, 0).UTC(),
		ExpiresAt:  time.Unix(rr.ExpiresAt, 0).UTC(),
	}, nil
}
