package beat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nebula-tasks/beat/internal/broker"
	"github.com/nebula-tasks/beat/internal/metrics"
	"github.com/nebula-tasks/beat/internal/schedule"
	"github.com/nebula-tasks/beat/internal/scheduler"
)

// Beat drives the scheduler's tick loop, the backend-sync hook, and broker
// reconnect supervision. It owns the Scheduler and SchedulerBackend
// exclusively; nothing else may call Tick or Sync while Start is running.
type Beat struct {
	cfg              Config
	scheduler        *scheduler.Scheduler
	schedulerBackend scheduler.Backend
	broker           broker.Broker
	logger           *slog.Logger
}

// ScheduleTask registers a new entry, resolving its queue from the
// configured routing table (falling back to DefaultQueue).
func (bt *Beat) ScheduleTask(name string, factory scheduler.MessageFactory, taskName string, sched schedule.Schedule) (*scheduler.ScheduledTask, error) {
	queue := broker.Route(taskName, bt.cfg.routes(), bt.cfg.DefaultQueue)
	return bt.scheduler.ScheduleTask(name, factory, queue, sched, time.Now())
}

// Scheduler exposes the underlying scheduler, e.g. for a caller wiring a
// SchedulerBackend that needs to enumerate entries outside of Sync.
func (bt *Beat) Scheduler() *scheduler.Scheduler { return bt.scheduler }

// Start runs the outer supervision loop until ctx is cancelled or a
// non-retriable error occurs: it repeatedly runs beatLoop, and on a broker
// connection error with retry enabled, attempts to reconnect before
// resuming.
func (bt *Beat) Start(ctx context.Context) error {
	for {
		err := bt.beatLoop(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var be *Error
		if !errors.As(err, &be) || be.Op != "tick" || !broker.IsConnectionError(be.Err) {
			return err
		}
		if !bt.cfg.BrokerConnectionRetry {
			return err
		}

		bt.logger.Warn("beat: broker connection lost, entering reconnect subroutine", "error", err)
		if rerr := bt.reconnect(ctx); rerr != nil {
			return rerr
		}
		bt.logger.Info("beat: broker reconnected, resuming tick loop")
	}
}

// beatLoop is one pass of: tick, maybe sync, sleep until the next due
// entry or MaxSleepDuration, whichever is sooner.
func (bt *Beat) beatLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		next, err := bt.scheduler.Tick(ctx, time.Now())
		if err != nil {
			return &Error{Op: "tick", Err: err}
		}

		if bt.schedulerBackend.ShouldSync(ctx) {
			syncStart := time.Now()
			err := bt.schedulerBackend.Sync(ctx, bt.scheduler)
			metrics.BackendSyncDuration.Observe(time.Since(syncStart).Seconds())
			if err != nil {
				return &Error{Op: "sync", Err: err}
			}
		}

		sleepFor := time.Until(next)
		if sleepFor < 0 {
			sleepFor = 0
		}
		if cap := bt.cfg.maxSleepDuration(); cap != nil && sleepFor > *cap {
			sleepFor = *cap
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
	}
}

// reconnect retries broker.Reconnect up to BrokerConnectionMaxRetries times,
// spaced BrokerConnectionRetryDelay apart. A non-connection error aborts
// immediately; exhaustion yields ErrNotConnected.
func (bt *Beat) reconnect(ctx context.Context) error {
	for attempt := 1; attempt <= bt.cfg.BrokerConnectionMaxRetries; attempt++ {
		err := bt.broker.Reconnect(ctx, bt.cfg.BrokerConnectionTimeout)
		if err == nil {
			metrics.ReconnectAttemptsTotal.WithLabelValues("ok").Inc()
			return nil
		}
		if !broker.IsConnectionError(err) {
			metrics.ReconnectAttemptsTotal.WithLabelValues("other_error").Inc()
			return &Error{Op: "reconnect", Err: err}
		}
		metrics.ReconnectAttemptsTotal.WithLabelValues("connection_error").Inc()

		bt.logger.Warn("beat: reconnect attempt failed", "attempt", attempt, "max_retries", bt.cfg.BrokerConnectionMaxRetries, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bt.cfg.BrokerConnectionRetryDelay):
		}
	}
	return ErrNotConnected
}
