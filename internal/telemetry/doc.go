// Package telemetry provides structured logging for the Beat process and
// the packages it wires together, via log/slog. Prometheus metrics live
// separately in internal/metrics.
package telemetry
