package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient is the narrow surface RedisBroker needs, so tests can inject a
// fake instead of dialing a real server.
type redisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	RPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	Close() error
}

// redisEnvelope is the wire shape pushed onto a queue list; it carries just
// enough framing for a worker to recover the original Message.
type redisEnvelope struct {
	ID          string         `json:"id"`
	ContentType ContentType    `json:"content_type"`
	Headers     map[string]any `json:"headers"`
	Body        []byte         `json:"body"`
}

// RedisBroker publishes by RPUSH-ing an encoded envelope onto a list named
// after the destination queue, mirroring the list-as-queue convention the
// Celery Redis transport uses.
type RedisBroker struct {
	client redisClient
	addr   string
	opts   *redis.Options
	logger *slog.Logger
}

// RedisBrokerBuilder configures and connects a RedisBroker.
type RedisBrokerBuilder struct {
	addr        string
	opts        *redis.Options
	contentType ContentType
	logger      *slog.Logger
}

// NewRedisBrokerBuilder parses a redis:// URL into dial options.
func NewRedisBrokerBuilder(rawURL string, logger *slog.Logger) (*RedisBrokerBuilder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("broker: parse redis url: %w", err)
	}
	return &RedisBrokerBuilder{
		addr:        opts.Addr,
		opts:        opts,
		contentType: ContentTypeJSON,
		logger:      logger,
	}, nil
}

// DeclareQueue is a no-op for Redis: lists spring into existence on first
// RPUSH. Kept so RedisBrokerBuilder satisfies the same configuration shape
// as AMQPBrokerBuilder.
func (b *RedisBrokerBuilder) DeclareQueue(string) *RedisBrokerBuilder { return b }

// ContentType sets the default body content type advertised on publish.
func (b *RedisBrokerBuilder) ContentType(ct ContentType) *RedisBrokerBuilder {
	b.contentType = ct
	return b
}

// BuildAndConnect dials Redis, retrying up to maxRetries times spaced
// retryDelay apart, each attempt bounded by timeout.
func (b *RedisBrokerBuilder) BuildAndConnect(ctx context.Context, timeout time.Duration, maxRetries int, retryDelay time.Duration) (*RedisBroker, error) {
	br := &RedisBroker{addr: b.addr, opts: b.opts, logger: b.logger}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		client := redis.NewClient(b.opts)
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			br.client = client
			b.logger.Info("redis broker connected", "addr", b.addr)
			return br, nil
		}
		client.Close()
		lastErr = err
		b.logger.Warn("redis broker connect attempt failed", "attempt", attempt, "error", err)
	}

	return nil, &Error{Op: "connect", Err: lastErr, Connection: true}
}

// Publish RPUSHes an encoded envelope onto the list named queue.
func (br *RedisBroker) Publish(ctx context.Context, msg *Message, queue string) error {
	if br.client == nil {
		return &Error{Op: "publish", Err: fmt.Errorf("no client available"), Connection: true}
	}

	payload, err := json.Marshal(redisEnvelope{
		ID:          msg.ID,
		ContentType: msg.ContentType,
		Headers:     msg.Headers,
		Body:        msg.Body,
	})
	if err != nil {
		return &Error{Op: "publish", Err: fmt.Errorf("encode envelope: %w", err), Connection: false}
	}

	if err := br.client.RPush(ctx, queue, payload).Err(); err != nil {
		return &Error{Op: "publish", Err: err, Connection: br.IsConnectionError(err)}
	}
	return nil
}

// Reconnect drops the current client and dials a fresh one within timeout.
func (br *RedisBroker) Reconnect(ctx context.Context, timeout time.Duration) error {
	if br.client != nil {
		br.client.Close()
	}

	client := redis.NewClient(br.opts)
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return &Error{Op: "reconnect", Err: err, Connection: true}
	}
	br.client = client
	return nil
}

// IsConnectionError classifies a go-redis error as connectivity-related.
// redis.Nil (a legitimate "key missing" result) is deliberately excluded.
func (br *RedisBroker) IsConnectionError(err error) bool {
	if err == nil || err == redis.Nil {
		return false
	}
	if _, ok := err.(interface{ Timeout() bool }); ok {
		return true
	}
	return err == redis.ErrClosed
}

// Close releases the underlying client.
func (br *RedisBroker) Close() error {
	if br.client == nil {
		return nil
	}
	return br.client.Close()
}
