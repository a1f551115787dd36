// Package schedulerpg implements a scheduler.Backend backed by a Postgres
// table, reconciling the in-memory entry set with rows in beat_schedules on
// a poll interval. It does not perform leader election or any locking:
// running it from more than one process against the same table requires the
// caller to ensure only one of them syncs and ticks at a time.
package schedulerpg
