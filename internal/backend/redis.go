package backend

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nebula-tasks/beat/internal/metrics"
)

// redisClient is the narrow surface RedisBackend needs, so tests can inject
// a fake instead of dialing a real server.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisBackend stores one JSON string per task at key "task:<id>".
type RedisBackend struct {
	Base
	client redisClient
}

// NewRedisBackend wraps an existing *redis.Client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return newRedisBackend(client)
}

func newRedisBackend(client redisClient) *RedisBackend {
	rb := &RedisBackend{client: client}
	rb.Base.Storer = rb
	return rb
}

func redisKey(id string) string { return "task:" + id }

// StoreResult writes meta as JSON, or deletes the key when meta is nil.
func (rb *RedisBackend) StoreResult(ctx context.Context, id string, meta *ResultMetadata) error {
	start := time.Now()
	defer func() {
		metrics.ResultBackendLatency.WithLabelValues("redis", "store").Observe(time.Since(start).Seconds())
	}()

	if meta == nil {
		if err := rb.client.Del(ctx, redisKey(id)).Err(); err != nil {
			return &TransportError{Err: err}
		}
		return nil
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		return &SerializationError{Err: err}
	}
	if err := rb.client.Set(ctx, redisKey(id), payload, 0).Err(); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// GetTaskMeta reads and decodes the record at "task:<id>", returning
// ErrDocumentNotFound when the key is absent.
func (rb *RedisBackend) GetTaskMeta(ctx context.Context, id string) (*ResultMetadata, error) {
	start := time.Now()
	defer func() {
		metrics.ResultBackendLatency.WithLabelValues("redis", "get").Observe(time.Since(start).Seconds())
	}()

	raw, err := rb.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	var meta ResultMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, &SerializationError{Err: err}
	}
	return &meta, nil
}

var _ Backend = (*RedisBackend)(nil)
