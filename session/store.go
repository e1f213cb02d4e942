package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrReuse is returned by Rotate when the presented refresh-token ID
	// was already rotated out or superseded: the theft signal.
	ErrReuse = errors.New("refresh token id already rotated out")
	// ErrNoSession is returned when no active refresh-token ID exists for
	// the user and the presented ID was never seen. Plain invalidity, not
	// theft.
	ErrNoSession = errors.New("no active refresh session")
	// ErrRedisUnavailable wraps transport-level Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const (
	rotateStatusNoSession int64 = 0
	rotateStatusReuse     int64 = 1
	rotateStatusRotated   int64 = 2
)

// rotateScript validates the presented ID against the active one and, in
// the same atomic step, marks it spent and installs the next ID. A
// mismatch against a live entry and a hit on the spent index are both
// reuse; an unknown ID with no session is ordinary invalidity.
const rotateScript = `
local current = redis.call("GET", KEYS[1])
if current == ARGV[1] then
  redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
  redis.call("SET", KEYS[2], "1", "PX", ARGV[3])
  return 2
end
if current then
  return 1
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return 1
end
return 0
`

var rotateLua = redis.NewScript(rotateScript)

// Store is the Redis-backed refresh session store. One active refresh
// token ID per user; Insert overwrites and thereby invalidates any prior
// ID.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStore creates a refresh session [Store]. prefix namespaces the Redis
// keys; ttl is the refresh-token lifetime applied to every entry.
func NewStore(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	return &Store{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

func (s *Store) spentKey(tokenID string) string {
	return s.prefix + ":s:" + tokenID
}

// Insert stores tokenID as the sole active refresh-token ID for userID,
// overwriting any prior one.
func (s *Store) Insert(ctx context.Context, userID, tokenID string) error {
	if err := s.redis.Set(ctx, s.userKey(userID), tokenID, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Validate reports whether tokenID matches the currently active ID for
// userID. Read-only; Rotate is the mutating, atomic counterpart.
func (s *Store) Validate(ctx context.Context, userID, tokenID string) (bool, error) {
	current, err := s.redis.Get(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return current == tokenID, nil
}

// Invalidate removes the active refresh-token ID for userID. Used on
// logout and revocation; idempotent.
func (s *Store) Invalidate(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.userKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Rotate atomically validates presentedID for userID and replaces it with
// nextID. On success the presented ID lands in the spent index so any
// later replay is reported as [ErrReuse] rather than [ErrNoSession].
func (s *Store) Rotate(ctx context.Context, userID, presentedID, nextID string) error {
	result, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.userKey(userID), s.spentKey(presentedID)},
		presentedID,
		nextID,
		s.ttl.Milliseconds(),
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	code, ok := result.(int64)
	if !ok {
		return fmt.Errorf("%w: invalid rotate script response", ErrRedisUnavailable)
	}

	switch code {
	case rotateStatusRotated:
		return nil
	case rotateStatusReuse:
		return ErrReuse
	case rotateStatusNoSession:
		return ErrNoSession
	default:
		return fmt.Errorf("%w: unknown rotate script status %d", ErrRedisUnavailable, code)
	}
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
