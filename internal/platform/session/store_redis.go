// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/caseline/internal/platform/constants"
)

// RedisStore implements Store using Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store. Every Save refreshes the
// key's TTL, so an active session lives at most ttl past its last rotation.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

/*
Get loads and decodes the session stored under id.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Session: nil when the key is absent or expired
  - error: connectivity or decoding failures
*/
func (store *RedisStore) Get(context context.Context, id string) (*Session, error) {
	raw, err := store.client.Get(context, constants.RedisPrefixSession+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis_session_get_failed: %w", err)
	}

	value := &Session{}
	if err := json.Unmarshal(raw, value); err != nil {
		return nil, fmt.Errorf("redis_session_decode_failed: %w", err)
	}

	return value, nil
}

/*
Save encodes value and writes it under id with the store TTL.

Parameters:
  - context: context.Context
  - id: string
  - value: *Session

Returns:
  - error: invariant violations or connectivity errors
*/
func (store *RedisStore) Save(context context.Context, id string, value *Session) error {
	if err := value.Check(); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis_session_encode_failed: %w", err)
	}

	if err := store.client.Set(context, constants.RedisPrefixSession+id, raw, store.ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_set_failed: %w", err)
	}

	return nil
}

/*
Destroy deletes the session key.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Deletion failures
*/
func (store *RedisStore) Destroy(context context.Context, id string) error {
	if err := store.client.Del(context, constants.RedisPrefixSession+id).Err(); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}
	return nil
}
