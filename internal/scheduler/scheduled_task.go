package scheduler

import (
	"time"

	"github.com/nebula-tasks/beat/internal/broker"
	"github.com/nebula-tasks/beat/internal/schedule"
)

// MessageFactory produces a fresh broker message on every call, generating
// a new task id each time. Two calls never return the same id.
type MessageFactory func() (*broker.Message, error)

// ScheduledTask pairs a task signature's message factory with a Schedule
// and the bookkeeping the Scheduler needs to fire it at the right time.
type ScheduledTask struct {
	// Name is a display label; it is not required to be unique.
	Name string

	Factory  MessageFactory
	Queue    string
	Schedule schedule.Schedule

	LastRunAt     *time.Time
	TotalRunCount uint64
	NextCallAt    time.Time

	// Metadata is free for a SchedulerBackend to stash bookkeeping in (e.g.
	// a source row id or a change-detection checksum); the Scheduler never
	// reads or writes it.
	Metadata map[string]any

	// seq orders entries with an equal NextCallAt by insertion order,
	// breaking ties deterministically without relying on heap internals.
	seq uint64
}

// RenderMessage asks the factory for a fresh, independently-identified
// message. It has no side effect on the task's own state.
func (t *ScheduledTask) RenderMessage() (*broker.Message, error) {
	return t.Factory()
}

// MarkFired records that the task published at "at" and advances
// NextCallAt from "at" — never from time.Now() — so that phase is
// preserved across delayed or batched ticks.
func (t *ScheduledTask) MarkFired(at time.Time) error {
	next, err := t.Schedule.Next(at)
	if err != nil {
		return err
	}
	t.LastRunAt = &at
	t.TotalRunCount++
	t.NextCallAt = next
	return nil
}
