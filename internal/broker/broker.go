package broker

import (
	"context"
	"time"
)

// ContentType identifies the body serialization variant of a task message,
// passed through to signatures unchanged (serialization itself is a
// worker-side concern, out of scope here).
type ContentType string

// Recognized content types.
const (
	ContentTypeJSON   ContentType = "application/json"
	ContentTypeYAML   ContentType = "application/x-yaml"
	ContentTypeMsgPack ContentType = "application/x-msgpack"
)

// Message is a rendered task message ready to publish: Celery-compatible
// headers plus an opaque, already-serialized body.
type Message struct {
	// ID is the task id carried in the headers (and, for AMQP, the
	// message's MessageId property).
	ID string

	// ContentType names the body's serialization variant.
	ContentType ContentType

	// Headers carries Celery protocol headers (task name, retries, eta, …).
	Headers map[string]any

	// Body is the already-serialized task payload.
	Body []byte
}

// Broker publishes rendered messages to a destination queue and manages its
// own connectivity.
type Broker interface {
	// Publish delivers msg to queue. Implementations return an Error with
	// Connection set when the failure indicates the underlying transport
	// dropped, so the caller can decide to reconnect rather than give up.
	Publish(ctx context.Context, msg *Message, queue string) error

	// Reconnect attempts to re-establish connectivity within timeout.
	Reconnect(ctx context.Context, timeout time.Duration) error

	// IsConnectionError classifies err as a connectivity failure (true) or
	// some other kind of publish failure (false).
	IsConnectionError(err error) bool
}
