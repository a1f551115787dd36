package scheduler

import "context"

// Backend synchronizes a Scheduler's in-memory entries with an external
// source of truth. ShouldSync is polled every tick; when it reports true,
// Sync is given the chance to add, remove, or reschedule entries before the
// next tick runs.
type Backend interface {
	ShouldSync(ctx context.Context) bool
	Sync(ctx context.Context, s *Scheduler) error
}

// LocalBackend never synchronizes; it is the default for a Scheduler whose
// entries are only ever changed by direct calls to ScheduleTask/RemoveTask.
type LocalBackend struct{}

func (LocalBackend) ShouldSync(context.Context) bool { return false }

func (LocalBackend) Sync(context.Context, *Scheduler) error { return nil }

var _ Backend = LocalBackend{}
