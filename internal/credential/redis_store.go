package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pairPrefix  = "cred:v1:"
	tokenPrefix = "credtok:v1:"
)

// consumeScript compares and deletes in one server-side step so concurrent
// verifies with the correct secret cannot both succeed.
var consumeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v or v ~= ARGV[1] then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

type redisStore struct {
	client *redis.Client
}

// NewRedisStore builds a credential store backed by Redis. Expiry rides on
// native key TTLs, so no sweeper is needed for this backend.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) pairKey(subjectKey string, purpose Purpose) string {
	return pairPrefix + string(purpose) + ":" + subjectKey
}

func (s *redisStore) Issue(ctx context.Context, subjectKey string, purpose Purpose, secret string, ttl time.Duration) error {
	if !purpose.Valid() {
		return ErrInvalidPurpose
	}

	key := s.pairKey(subjectKey, purpose)

	// Drop the token index of any credential this issue replaces.
	if prev, err := s.client.Get(ctx, key).Result(); err == nil && prev != "" {
		s.client.Del(ctx, tokenPrefix+prev)
	}

	if err := s.client.Set(ctx, key, secret, ttl).Err(); err != nil {
		return fmt.Errorf("issue credential: %w", err)
	}
	if purpose == PurposePasswordReset {
		if err := s.client.Set(ctx, tokenPrefix+secret, subjectKey, ttl).Err(); err != nil {
			return fmt.Errorf("index reset token: %w", err)
		}
	}
	return nil
}

func (s *redisStore) Verify(ctx context.Context, subjectKey string, purpose Purpose, candidate string) error {
	if !purpose.Valid() {
		return ErrInvalidOrExpired
	}

	consumed, err := consumeScript.Run(ctx, s.client, []string{s.pairKey(subjectKey, purpose)}, candidate).Int()
	if err != nil {
		return fmt.Errorf("verify credential: %w", err)
	}
	if consumed != 1 {
		return ErrInvalidOrExpired
	}
	if purpose == PurposePasswordReset {
		s.client.Del(ctx, tokenPrefix+candidate)
	}
	return nil
}

func (s *redisStore) LookupToken(ctx context.Context, token string) (string, error) {
	subject, err := s.client.Get(ctx, tokenPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrInvalidOrExpired
		}
		return "", fmt.Errorf("lookup reset token: %w", err)
	}

	// The token index alone is not authoritative; the pair entry must still
	// hold this exact secret (a re-issue may have replaced it).
	current, err := s.client.Get(ctx, s.pairKey(subject, PurposePasswordReset)).Result()
	if err != nil || current != token {
		return "", ErrInvalidOrExpired
	}
	return subject, nil
}

func (s *redisStore) RemoveToken(ctx context.Context, token string) error {
	subject, err := s.client.Get(ctx, tokenPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("remove reset token: %w", err)
	}
	if err := s.client.Del(ctx, tokenPrefix+token, s.pairKey(subject, PurposePasswordReset)).Err(); err != nil {
		return fmt.Errorf("remove reset token: %w", err)
	}
	return nil
}
