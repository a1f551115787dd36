package beat

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when the reconnect subroutine exhausts
// BrokerConnectionMaxRetries without success.
var ErrNotConnected = errors.New("beat: broker not connected")

// Error wraps a failure raised by Beat, tagged by Op: "build" (broker
// setup), "tick" (a connection error propagated from Scheduler.Tick),
// "sync" (a SchedulerBackend.Sync failure) or "reconnect". Scheduling faults
// such as a cron schedule with no future occurrence are not wrapped here:
// Tick logs them and drops the entry.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("beat: %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }
