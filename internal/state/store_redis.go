package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"paygate/pkg/platform/sentinel"
)

const stateKeyPrefix = "payflow:state:"

// RedisStore is the Redis-backed signed state store for multi-instance
// deployments. TTL enforcement rides on key expiry; Consume uses a
// single-key GETDEL so two racing settlements cannot both win.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisState struct {
	RawPayload  []byte    `json:"raw_payload"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *RedisStore) Put(ctx context.Context, st SignedState, ttl time.Duration) error {
	raw, err := json.Marshal(redisState{
		RawPayload:  st.RawPayload,
		ContentHash: st.ContentHash,
		CreatedAt:   st.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal signed state: %w", err)
	}
	return s.client.Set(ctx, stateKeyPrefix+st.ContentHash, raw, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, contentHash string) (SignedState, error) {
	raw, err := s.client.Get(ctx, stateKeyPrefix+contentHash).Bytes()
	if errors.Is(err, redis.Nil) {
		return SignedState{}, sentinel.ErrNotFound
	}
	if err != nil {
		return SignedState{}, fmt.Errorf("get signed state: %w", err)
	}
	return decodeRedisState(raw)
}

func (s *RedisStore) Consume(ctx context.Context, contentHash string) error {
	err := s.client.GetDel(ctx, stateKeyPrefix+contentHash).Err()
	if errors.Is(err, redis.Nil) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("consume signed state: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, contentHash string) error {
	return s.client.Del(ctx, stateKeyPrefix+contentHash).Err()
}

func decodeRedisState(raw []byte) (SignedState, error) {
	var rs redisState
	if err := json.Unmarshal(raw, &rs); err != nil {
		return SignedState{}, fmt.Errorf("unmarshal signed state: %w", err)
	}
	return SignedState{
		RawPayload:  rs.RawPayload,
		ContentHash: rs.ContentHash,
		CreatedAt:   rs.CreatedAt,
	}, nil
}
