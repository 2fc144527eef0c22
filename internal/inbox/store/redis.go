package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "onboard/pkg/domain"
)

const claimKeyPrefix = "onboard:inbox:claim:"

// DefaultClaimTTL outlives any session that could still read the claim.
const DefaultClaimTTL = time.Hour

// RedisClaimStore pins the first message per correlation id with SETNX,
// so every replica agrees on which arrival wins.
type RedisClaimStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisClaimStore(client redis.Cmdable, ttl time.Duration) *RedisClaimStore {
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	return &RedisClaimStore{client: client, ttl: ttl}
}

func (s *RedisClaimStore) Claim(ctx context.Context, correlationID id.CorrelationID, raw []byte) ([]byte, error) {
	key := claimKeyPrefix + correlationID.String()
	ok, err := s.client.SetNX(ctx, key, raw, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("claim inbox message: %w", err)
	}
	if ok {
		return raw, nil
	}
	stored, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; the caller's copy is now the only one.
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read claimed inbox message: %w", err)
	}
	return stored, nil
}

func (s *RedisClaimStore) Forget(ctx context.Context, correlationID id.CorrelationID) error {
	if err := s.client.Del(ctx, claimKeyPrefix+correlationID.String()).Err(); err != nil {
		return fmt.Errorf("forget inbox claim: %w", err)
	}
	return nil
}
