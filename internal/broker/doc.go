// Package broker defines the Broker capability the scheduler consumes to
// publish rendered task messages, along with two concrete transports:
//
//   - amqp.go  — AMQPBroker, built on github.com/rabbitmq/amqp091-go
//   - redis.go — RedisBroker, built on github.com/redis/go-redis/v9
//
// Broker connectivity, reconnection, and queue/exchange declaration are
// intentionally synchronous and explicit: every suspension point (connect,
// publish, reconnect) is driven by the caller rather than by a background
// goroutine, so the Beat loop in package beat remains the sole owner of
// when those suspension points occur.
package broker
