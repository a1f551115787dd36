// Package beat wires a scheduler.Scheduler to a broker.Broker and a
// scheduler.Backend and drives them to completion.
//
//	config.go     Config, TOML loading, documented defaults
//	builder.go    Builder: chained option setters, Build dials the broker
//	beat.go       Beat: Start's outer loop, beatLoop, the reconnect subroutine
//	errors.go     ErrNotConnected, Error
//
// Start classifies every beatLoop failure: a context cancellation
// propagates immediately, a broker connection error enters the reconnect
// subroutine when BrokerConnectionRetry is enabled, and anything else
// propagates as-is. The reconnect subroutine is a bounded, synchronous
// retry loop rather than a background watcher, so the scheduler never
// ticks against a broker that is mid-reconnect.
package beat
