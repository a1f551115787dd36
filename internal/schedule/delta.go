package schedule

import (
	"fmt"
	"time"
)

// DeltaSchedule fires every fixed interval: Next(x) = x + d.
type DeltaSchedule struct {
	d time.Duration
}

// NewDeltaSchedule returns a DeltaSchedule with interval d. d must be
// strictly positive.
func NewDeltaSchedule(d time.Duration) (*DeltaSchedule, error) {
	if d <= 0 {
		return nil, fmt.Errorf("schedule: delta must be positive, got %s", d)
	}
	return &DeltaSchedule{d: d}, nil
}

// Next returns after + d, exactly.
func (s *DeltaSchedule) Next(after time.Time) (time.Time, error) {
	return after.Add(s.d), nil
}

// Interval returns the configured delta.
func (s *DeltaSchedule) Interval() time.Duration {
	return s.d
}
