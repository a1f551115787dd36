package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Builder is the scheme-agnostic configuration surface beat.Builder drives:
// recognized options are declare_queue, heartbeat and content_type, followed
// by a single build_and_connect call.
type Builder interface {
	DeclareQueue(name string) Builder
	Heartbeat(seconds *uint16) Builder
	ContentType(ct ContentType) Builder
	BuildAndConnect(ctx context.Context, timeout time.Duration, maxRetries int, retryDelay time.Duration) (Broker, error)
}

// NewBuilder dispatches on rawURL's scheme: "amqp"/"amqps" yields an
// AMQPBrokerBuilder, "redis"/"rediss" a RedisBrokerBuilder. Any other scheme
// is rejected rather than silently defaulted.
func NewBuilder(rawURL string, logger *slog.Logger) (Builder, error) {
	scheme, _, ok := strings.Cut(rawURL, "://")
	if !ok {
		return nil, fmt.Errorf("broker: url %q has no scheme", rawURL)
	}

	switch strings.ToLower(scheme) {
	case "amqp", "amqps":
		return &amqpBuilderAdapter{NewAMQPBrokerBuilder(rawURL, logger)}, nil
	case "redis", "rediss":
		b, err := NewRedisBrokerBuilder(rawURL, logger)
		if err != nil {
			return nil, err
		}
		return &redisBuilderAdapter{b}, nil
	default:
		return nil, fmt.Errorf("broker: unsupported scheme %q", scheme)
	}
}

// amqpBuilderAdapter and redisBuilderAdapter adapt the concrete builders'
// self-typed chained methods to the Builder interface, which must return
// the interface type rather than each concrete pointer type.

type amqpBuilderAdapter struct{ b *AMQPBrokerBuilder }

func (a *amqpBuilderAdapter) DeclareQueue(name string) Builder {
	a.b.DeclareQueue(name)
	return a
}

func (a *amqpBuilderAdapter) Heartbeat(seconds *uint16) Builder {
	a.b.Heartbeat(seconds)
	return a
}

func (a *amqpBuilderAdapter) ContentType(ct ContentType) Builder {
	a.b.ContentType(ct)
	return a
}

func (a *amqpBuilderAdapter) BuildAndConnect(ctx context.Context, timeout time.Duration, maxRetries int, retryDelay time.Duration) (Broker, error) {
	return a.b.BuildAndConnect(ctx, timeout, maxRetries, retryDelay)
}

type redisBuilderAdapter struct{ b *RedisBrokerBuilder }

func (r *redisBuilderAdapter) DeclareQueue(name string) Builder {
	r.b.DeclareQueue(name)
	return r
}

func (r *redisBuilderAdapter) Heartbeat(*uint16) Builder {
	// Redis list queues have no heartbeat concept; accepted for interface
	// uniformity and ignored.
	return r
}

func (r *redisBuilderAdapter) ContentType(ct ContentType) Builder {
	r.b.ContentType(ct)
	return r
}

func (r *redisBuilderAdapter) BuildAndConnect(ctx context.Context, timeout time.Duration, maxRetries int, retryDelay time.Duration) (Broker, error) {
	return r.b.BuildAndConnect(ctx, timeout, maxRetries, retryDelay)
}
