package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-gauntlet/internal/domain"
)

// KVStore keeps one device's values in a single hash: HSET quiz:kv:{namespace} {key} {value}.
// Clear drops the hash and leaves every other key alone.
type KVStore struct {
	client *redis.Client
	hash   string
}

func NewKVStore(client *redis.Client, namespace string) *KVStore {
	return &KVStore{client: client, hash: "quiz:kv:" + namespace}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.HGet(ctx, s.hash, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("hget %s: %w", key, err)
	}
	return v, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.HSet(ctx, s.hash, key, value).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	return s.client.HDel(ctx, s.hash, key).Err()
}

func (s *KVStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.hash).Err()
}
