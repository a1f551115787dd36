package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nebula-tasks/beat/internal/broker"
	"github.com/nebula-tasks/beat/internal/metrics"
	"github.com/nebula-tasks/beat/internal/schedule"
	"github.com/nebula-tasks/beat/internal/telemetry"
)

// DefaultTickInterval is returned by Tick as the next wake-up delay when no
// entries are registered.
const DefaultTickInterval = time.Minute

// Scheduler owns a priority queue of ScheduledTasks and the broker they
// publish through. It is driven by a single caller (package beat); none of
// its methods are safe for concurrent use.
type Scheduler struct {
	broker        broker.Broker
	heap          taskHeap
	nextSeq       uint64
	defaultInterval time.Duration
	logger        *slog.Logger
}

// New builds a Scheduler bound to br. defaultInterval is used as Tick's
// returned delay when the queue is empty; zero selects DefaultTickInterval.
func New(br broker.Broker, defaultInterval time.Duration, logger *slog.Logger) *Scheduler {
	if defaultInterval <= 0 {
		defaultInterval = DefaultTickInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		broker:          br,
		defaultInterval: defaultInterval,
		logger:          logger,
	}
}

// ScheduleTask registers a new entry with NextCallAt = sched.Next(now).
func (s *Scheduler) ScheduleTask(name string, factory MessageFactory, queue string, sched schedule.Schedule, now time.Time) (*ScheduledTask, error) {
	next, err := sched.Next(now)
	if err != nil {
		return nil, &FaultError{TaskName: name, Err: err}
	}

	t := &ScheduledTask{
		Name:       name,
		Factory:    factory,
		Queue:      queue,
		Schedule:   sched,
		NextCallAt: next,
		seq:        s.nextSeq,
	}
	s.nextSeq++
	heap.Push(&s.heap, t)
	return t, nil
}

// ScheduledTasks exposes the live entry set for a SchedulerBackend to
// inspect and mutate. Callers that change NextCallAt or Schedule must call
// Reheapify afterward to restore heap order.
func (s *Scheduler) ScheduledTasks() []*ScheduledTask {
	return s.heap
}

// AddTask inserts an already-constructed entry, used by SchedulerBackend
// implementations that build ScheduledTask values themselves.
func (s *Scheduler) AddTask(t *ScheduledTask) {
	t.seq = s.nextSeq
	s.nextSeq++
	heap.Push(&s.heap, t)
}

// RemoveTask drops the first entry with the given name, reporting whether
// one was found.
func (s *Scheduler) RemoveTask(name string) bool {
	for i, t := range s.heap {
		if t.Name == name {
			heap.Remove(&s.heap, i)
			return true
		}
	}
	return false
}

// Reheapify restores heap order after a SchedulerBackend mutated entries
// returned by ScheduledTasks in place.
func (s *Scheduler) Reheapify() {
	heap.Init(&s.heap)
}

// Len reports the number of registered entries.
func (s *Scheduler) Len() int { return s.heap.Len() }

// Tick fires every entry whose NextCallAt is at or before now, then returns
// the NextCallAt of the earliest remaining entry, or now+defaultInterval if
// the queue is empty.
//
// A publish failure classified as a connection error stops the tick and is
// returned to the caller wrapped with %w (so errors.As still finds the
// broker error), with the offending entry reinserted
// without having been marked fired — Beat is expected to reconnect and
// retry. Any other publish failure is logged and the entry is advanced
// anyway, so a single poisoned message cannot hot-loop the scheduler.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (time.Time, error) {
	start := time.Now()
	defer func() {
		metrics.TickDuration.Observe(time.Since(start).Seconds())
		metrics.ScheduledEntries.Set(float64(s.heap.Len()))
	}()

	ctx = telemetry.WithLogger(ctx, s.logger)

	for s.heap.Len() > 0 {
		next := s.heap[0]
		if next.NextCallAt.After(now) {
			break
		}

		heap.Pop(&s.heap)
		firedAt := next.NextCallAt
		entryLog := telemetry.WithEntryName(telemetry.FromContext(ctx), next.Name)

		msg, err := next.RenderMessage()
		if err != nil {
			entryLog.Error("scheduled task message factory failed", "error", err)
			if advErr := s.advance(next, firedAt, now); advErr != nil {
				entryLog.Error("dropping scheduled task after fault", "error", advErr)
				continue
			}
			heap.Push(&s.heap, next)
			continue
		}

		if err := s.broker.Publish(ctx, msg, next.Queue); err != nil {
			if s.broker.IsConnectionError(err) {
				metrics.PublishesTotal.WithLabelValues(next.Queue, "connection_error").Inc()
				metrics.TicksTotal.WithLabelValues("connection_error").Inc()
				heap.Push(&s.heap, next)
				return time.Time{}, fmt.Errorf("scheduler: publish %q: %w", next.Name, err)
			}
			metrics.PublishesTotal.WithLabelValues(next.Queue, "other_error").Inc()
			entryLog.Warn("scheduled task publish failed, advancing anyway", "error", err)
		} else {
			metrics.PublishesTotal.WithLabelValues(next.Queue, "ok").Inc()
		}

		if advErr := s.advance(next, firedAt, now); advErr != nil {
			entryLog.Error("dropping scheduled task after fault", "error", advErr)
			continue
		}
		heap.Push(&s.heap, next)
	}

	metrics.TicksTotal.WithLabelValues("ok").Inc()
	if s.heap.Len() == 0 {
		return now.Add(s.defaultInterval), nil
	}
	return s.heap[0].NextCallAt, nil
}

// advance marks t fired at firedAt, then collapses any further occurrences
// already in the past (catch-up) into NextCallAt without additional
// publishes, so one tick emits at most one message per entry regardless of
// how many ticks were missed.
func (s *Scheduler) advance(t *ScheduledTask, firedAt, now time.Time) error {
	if err := t.MarkFired(firedAt); err != nil {
		return &FaultError{TaskName: t.Name, Err: err}
	}

	for !t.NextCallAt.After(now) {
		next, err := t.Schedule.Next(t.NextCallAt)
		if err != nil {
			return &FaultError{TaskName: t.Name, Err: err}
		}
		if !next.After(t.NextCallAt) {
			return &FaultError{TaskName: t.Name, Err: fmt.Errorf("schedule did not advance past %s", t.NextCallAt)}
		}
		t.NextCallAt = next
	}
	return nil
}
