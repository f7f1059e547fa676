package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/makers/loans-api/internal/core/ports"
)

const (
	// ProvisionalLockTTL bounds how long an unfinished request holds its key.
	ProvisionalLockTTL = 60 * time.Second
	defaultResponseTTL = 24 * time.Hour
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// IdempotencyStore keeps recorded responses in Redis.
// Key format: idemp:<method>:<route>:<caller>:<idempotency key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore wraps client. Completed responses expire after ttl.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultResponseTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key string, entry ports.IdempotentResponse) (bool, error) {
	b, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	ok, err := s.client.SetNX(ctx, key, b, ProvisionalLockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency reserve: %w", err)
	}
	return ok, nil
}

func (s *IdempotencyStore) Load(ctx context.Context, key string) (*ports.IdempotentResponse, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("idempotency load: %w", err)
	}
	var entry ports.IdempotentResponse
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("idempotency decode: %w", err)
	}
	return &entry, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, entry ports.IdempotentResponse) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, s.ttl).Err()
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
