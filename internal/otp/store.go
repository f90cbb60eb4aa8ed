package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound         = errors.New("otp code not found")
	ErrExpired          = errors.New("otp code expired")
	ErrMismatch         = errors.New("otp code mismatch")
	ErrAttemptsExceeded = errors.New("otp attempts exceeded")
	ErrRedisUnavailable = errors.New("otp redis unavailable")
)

// consumeLua atomically performs the full validation read-modify-write on
// one record.
// KEYS[1] = record key
// ARGV[1] = provided hash (32 bytes)
// ARGV[2] = current unix milliseconds (int string)
//
// Returns record bytes on a match, else one of the error strings
// "not_found", "expired", "attempts_exceeded", "mismatch".
//
// Expired records are deleted opportunistically. Consumed records answer
// not_found. An exhausted budget rejects before the hash is even looked at,
// and keeps the tombstone so later attempts (correct code included) still
// answer attempts_exceeded until TTL or purge removes it.
var consumeLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local providedHash = ARGV[1]
local nowMs = tonumber(ARGV[2])

local version = string.byte(data, 1)
if version ~= 1 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local attempts = string.byte(data, 3) * 256 + string.byte(data, 4)
local maxAttempts = string.byte(data, 5) * 256 + string.byte(data, 6)

local e0,e1,e2,e3,e4,e5,e6,e7 = string.byte(data, 15, 22)
local expiresAt = e0
for _, b in ipairs({e1,e2,e3,e4,e5,e6,e7}) do
  expiresAt = expiresAt * 256 + b
end

if nowMs >= expiresAt then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end

if string.byte(data, 23) ~= 0 then
  return {err='not_found'}
end

if attempts >= maxAttempts then
  return {err='attempts_exceeded'}
end

local storedHash = string.sub(data, 24, 55)
if storedHash ~= providedHash then
  attempts = attempts + 1
  local newData = string.sub(data, 1, 2)
    .. string.char(math.floor(attempts / 256), attempts % 256)
    .. string.sub(data, 5)
  local ttlMs = redis.call('PTTL', KEYS[1])
  if ttlMs <= 0 then
    redis.call('DEL', KEYS[1])
    return {err='expired'}
  end
  redis.call('SET', KEYS[1], newData, 'PX', ttlMs)
  if attempts >= maxAttempts then
    return {err='attempts_exceeded'}
  end
  return {err='mismatch'}
end

local newData = string.sub(data, 1, 22) .. string.char(1) .. string.sub(data, 24)
local ttlMs = redis.call('PTTL', KEYS[1])
if ttlMs <= 0 then
  redis.call('DEL', KEYS[1])
else
  redis.call('SET', KEYS[1], newData, 'PX', ttlMs)
end
return data
`)

// purgeLua deletes one record iff its embedded expiry has passed, so a
// concurrent re-issue between SCAN and delete can never lose a live code.
// KEYS[1] = record key, ARGV[1] = current unix milliseconds.
var purgeLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return 0
end
if string.byte(data, 1) ~= 1 then
  redis.call('DEL', KEYS[1])
  return 1
end
local e0,e1,e2,e3,e4,e5,e6,e7 = string.byte(data, 15, 22)
local expiresAt = e0
for _, b in ipairs({e1,e2,e3,e4,e5,e6,e7}) do
  expiresAt = expiresAt * 256 + b
end
if tonumber(ARGV[1]) >= expiresAt then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)

// Store persists one record per (user, purpose) pair. Save overwrites, so
// issuing a new code is what invalidates the previous one.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "gg"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) key(user, purpose string) string {
	return s.prefix + ":otp:" + user + ":" + purpose
}

func (s *Store) scanPattern() string {
	return s.prefix + ":otp:*"
}

// Save writes the record under a TTL that should cover the logical expiry
// plus a retention grace, so tombstones stay visible to the purge pass.
func (s *Store) Save(ctx context.Context, user, purpose string, record *Record, ttl time.Duration) error {
	encoded, err := encodeRecord(record)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if err := s.redis.Set(ctx, s.key(user, purpose), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get reads a record without mutating it. Missing keys map to ErrNotFound.
func (s *Store) Get(ctx context.Context, user, purpose string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(user, purpose)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	record, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return record, nil
}

// Consume runs one validation attempt against the stored record. On a match
// the record is tombstoned as consumed and returned; every failure mode maps
// to one of the package sentinels.
func (s *Store) Consume(ctx context.Context, user, purpose string, providedHash [32]byte) (*Record, error) {
	result, err := consumeLua.Run(ctx, s.redis,
		[]string{s.key(user, purpose)},
		string(providedHash[:]),
		time.Now().UnixMilli(),
	).Result()

	if err != nil {
		switch err.Error() {
		case "not_found":
			return nil, ErrNotFound
		case "expired":
			return nil, ErrExpired
		case "attempts_exceeded":
			return nil, ErrAttemptsExceeded
		case "mismatch":
			return nil, ErrMismatch
		default:
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	data, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected lua result type", ErrRedisUnavailable)
	}

	record, decErr := decodeRecord([]byte(data))
	if decErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, decErr)
	}

	// Lua string equality is not constant-time; re-check here.
	if subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) != 1 {
		return nil, ErrMismatch
	}

	return record, nil
}

// PurgeExpired walks the record keyspace in SCAN batches and deletes every
// record whose embedded expiry has passed, consumed or not. Each deletion is
// an atomic per-key check, so the pass is safe against concurrent issuance
// and validation. Returns the number of records removed.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	nowMs := now.UnixMilli()
	purged := 0

	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.scanPattern(), 1000).Result()
		if err != nil {
			return purged, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		for _, key := range keys {
			n, err := purgeLua.Run(ctx, s.redis, []string{key}, nowMs).Int()
			if err != nil {
				return purged, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
			purged += n
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return purged, nil
}
