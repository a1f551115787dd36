// Package scheduler maintains the set of scheduled entries and drives the
// single tick loop that fires them.
//
// Structure:
//   - scheduled_task.go — ScheduledTask, the per-entry schedule+state pair
//   - heap.go            — a binary min-heap keyed by (next_call_at, seq)
//   - scheduler.go       — Scheduler: ScheduleTask, Tick, ScheduledTasks
//   - backend.go         — SchedulerBackend sync hook and its local no-op
//   - schedulerpg/       — a Postgres-backed SchedulerBackend
//
// Tick is cooperative and single-threaded: it never blocks on anything but
// the configured Broker's Publish call, and it is the caller's
// responsibility (package beat) to serialize calls to Tick. Scheduler does
// not implement leader election; when multiple processes share one
// schedule store, electing a single active caller of Tick is left to that
// caller; nothing in this module does it.
package scheduler
