package schedule

import (
	"errors"
	"time"
)

// ErrNoFutureOccurrence is returned by CronSchedule.Next when no matching
// instant exists within the search horizon.
var ErrNoFutureOccurrence = errors.New("schedule: no future occurrence within search horizon")

// Schedule computes the next fire time from a reference instant. Next must
// be pure and deterministic given the schedule's configuration, and its
// result must be strictly greater than after.
type Schedule interface {
	Next(after time.Time) (time.Time, error)
}
