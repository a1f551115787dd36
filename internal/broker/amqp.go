package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPBroker publishes to a RabbitMQ exchange/queue set over
// github.com/rabbitmq/amqp091-go. Unlike the teacher's internal/mq.Connection,
// it does not run a background reconnect watcher: Reconnect is called
// explicitly by the Beat loop's reconnect subroutine, keeping every
// suspension point under the scheduler's control.
type AMQPBroker struct {
	mu      sync.RWMutex
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel

	exchange      string
	declaredQueue string
	heartbeat     time.Duration

	logger *slog.Logger
}

// AMQPBrokerBuilder configures and connects an AMQPBroker.
type AMQPBrokerBuilder struct {
	url           string
	exchange      string
	declaredQueue string
	heartbeat     time.Duration
	contentType   ContentType
	logger        *slog.Logger
}

// NewAMQPBrokerBuilder starts building an AMQPBroker for the given AMQP URL.
func NewAMQPBrokerBuilder(url string, logger *slog.Logger) *AMQPBrokerBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPBrokerBuilder{
		url:         url,
		exchange:    "beat.tasks",
		contentType: ContentTypeJSON,
		logger:      logger,
	}
}

// DeclareQueue records the queue that must exist before the broker is
// considered ready (typically the configured default_queue).
func (b *AMQPBrokerBuilder) DeclareQueue(name string) *AMQPBrokerBuilder {
	b.declaredQueue = name
	return b
}

// Heartbeat sets the AMQP connection heartbeat interval. A nil value keeps
// the library default.
func (b *AMQPBrokerBuilder) Heartbeat(seconds *uint16) *AMQPBrokerBuilder {
	if seconds != nil {
		b.heartbeat = time.Duration(*seconds) * time.Second
	}
	return b
}

// ContentType sets the default body content type advertised on publish.
func (b *AMQPBrokerBuilder) ContentType(ct ContentType) *AMQPBrokerBuilder {
	b.contentType = ct
	return b
}

// BuildAndConnect dials the broker, retrying up to maxRetries times spaced
// retryDelay apart, each attempt bounded by timeout.
func (b *AMQPBrokerBuilder) BuildAndConnect(ctx context.Context, timeout time.Duration, maxRetries int, retryDelay time.Duration) (*AMQPBroker, error) {
	br := &AMQPBroker{
		url:           b.url,
		exchange:      b.exchange,
		declaredQueue: b.declaredQueue,
		heartbeat:     b.heartbeat,
		logger:        b.logger,
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		dialCtx, cancel := context.WithTimeout(ctx, timeout)
		err := br.dial(dialCtx)
		cancel()
		if err == nil {
			return br, nil
		}
		lastErr = err
		b.logger.Warn("amqp broker connect attempt failed", "attempt", attempt, "error", err)
	}

	return nil, &Error{Op: "connect", Err: lastErr, Connection: true}
}

func (br *AMQPBroker) dial(ctx context.Context) error {
	cfg := amqp.Config{}
	if br.heartbeat > 0 {
		cfg.Heartbeat = br.heartbeat
	}
	if deadline, ok := ctx.Deadline(); ok {
		cfg.Dial = amqp.DefaultDial(time.Until(deadline))
	}

	conn, err := amqp.DialConfig(br.url, cfg)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(br.exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	if br.declaredQueue != "" {
		if _, err := ch.QueueDeclare(br.declaredQueue, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("declare queue %s: %w", br.declaredQueue, err)
		}
		if err := ch.QueueBind(br.declaredQueue, br.declaredQueue, br.exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("bind queue %s: %w", br.declaredQueue, err)
		}
	}

	br.mu.Lock()
	br.conn = conn
	br.channel = ch
	br.mu.Unlock()

	br.logger.Info("amqp broker connected", "url", redactURL(br.url))
	return nil
}

// Publish declares and binds queue on demand, then publishes msg with
// routing key equal to queue.
func (br *AMQPBroker) Publish(ctx context.Context, msg *Message, queue string) error {
	br.mu.RLock()
	ch := br.channel
	br.mu.RUnlock()

	if ch == nil {
		return &Error{Op: "publish", Err: fmt.Errorf("no channel available"), Connection: true}
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return &Error{Op: "publish", Err: fmt.Errorf("declare queue %s: %w", queue, err), Connection: true}
	}
	if err := ch.QueueBind(queue, queue, br.exchange, false, nil); err != nil {
		return &Error{Op: "publish", Err: fmt.Errorf("bind queue %s: %w", queue, err), Connection: true}
	}

	err := ch.PublishWithContext(ctx, br.exchange, queue, false, false, amqp.Publishing{
		ContentType:  string(msg.ContentType),
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    time.Now(),
		Headers:      amqp.Table(msg.Headers),
		Body:         msg.Body,
	})
	if err != nil {
		return &Error{Op: "publish", Err: err, Connection: br.IsConnectionError(err)}
	}
	return nil
}

// Reconnect tears down any existing connection and dials again within
// timeout.
func (br *AMQPBroker) Reconnect(ctx context.Context, timeout time.Duration) error {
	br.mu.Lock()
	if br.channel != nil {
		br.channel.Close()
	}
	if br.conn != nil {
		br.conn.Close()
	}
	br.channel = nil
	br.conn = nil
	br.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := br.dial(dialCtx); err != nil {
		return &Error{Op: "reconnect", Err: err, Connection: true}
	}
	return nil
}

// IsConnectionError classifies an AMQP-layer error as connectivity-related.
func (br *AMQPBroker) IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	switch err {
	case amqp.ErrClosed:
		return true
	}
	var amqpErr *amqp.Error
	if e, ok := err.(*amqp.Error); ok {
		amqpErr = e
	}
	if amqpErr != nil {
		// 320 = CONNECTION_FORCED; every code from 501 up (frame, syntax,
		// channel, resource, not-allowed, not-implemented, internal errors).
		return amqpErr.Code == 320 || amqpErr.Code >= 501
	}
	return false
}

// Close releases the underlying connection and channel.
func (br *AMQPBroker) Close() error {
	br.mu.Lock()
	defer br.mu.Unlock()

	var firstErr error
	if br.channel != nil {
		if err := br.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if br.conn != nil {
		if err := br.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// redactURL drops userinfo from a broker URL before logging it.
func redactURL(url string) string {
	at := strings.LastIndexByte(url, '@')
	if at == -1 {
		return url
	}
	scheme := strings.Index(url, "://")
	if scheme == -1 {
		return url
	}
	return url[:scheme+3] + "***@" + url[at+1:]
}
