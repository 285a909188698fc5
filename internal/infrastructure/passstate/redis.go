package passstate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "predictor:pass:"

// RedisStore keeps pass state in redis so every scheduler instance sees the same
// previously-live flag and reminder marks.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) PreviouslyLive(ctx context.Context) (bool, error) {
	value, err := s.client.Get(ctx, s.prefix+"previously_live").Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get previously live: %w", err)
	}
	return value == "1", nil
}

func (s *RedisStore) SetPreviouslyLive(ctx context.Context, live bool) error {
	value := "0"
	if live {
		value = "1"
	}
	if err := s.client.Set(ctx, s.prefix+"previously_live", value, 0).Err(); err != nil {
		return fmt.Errorf("set previously live: %w", err)
	}
	return nil
}

func (s *RedisStore) MarkSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+"seen:"+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark seen %s: %w", key, err)
	}
	return ok, nil
}

// Reset deletes every key under the prefix.
func (s *RedisStore) Reset(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 500).Iterator()
	batch := make([]string, 0, 500)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("delete pass state keys: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan pass state keys: %w", err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("delete pass state keys: %w", err)
		}
	}
	return nil
}
