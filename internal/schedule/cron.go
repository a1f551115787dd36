package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// standardParser accepts the five standard cron fields: minute, hour,
// day-of-month, month, day-of-week.
var standardParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CronSchedule fires at instants matching a standard five-field cron
// expression, evaluated in a fixed IANA location.
type CronSchedule struct {
	expr string
	loc  *time.Location
	sch  cron.Schedule
}

// NewCronSchedule parses expr and binds it to loc. A nil loc defaults to
// UTC.
func NewCronSchedule(expr string, loc *time.Location) (*CronSchedule, error) {
	sch, err := standardParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid cron expression %q: %w", expr, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CronSchedule{expr: expr, loc: loc, sch: sch}, nil
}

// Next returns the smallest instant strictly greater than after that
// matches every field of the expression. robfig/cron bounds its internal
// search to a multi-year horizon and signals exhaustion with a zero
// time.Time, which we surface as ErrNoFutureOccurrence.
func (s *CronSchedule) Next(after time.Time) (time.Time, error) {
	next := s.sch.Next(after.In(s.loc))
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("schedule %q from %s: %w", s.expr, after, ErrNoFutureOccurrence)
	}
	return next.UTC(), nil
}

// Expr returns the original cron expression string.
func (s *CronSchedule) Expr() string {
	return s.expr
}

// ValidateCronExpr reports whether expr parses as a valid five-field cron
// expression, without constructing a CronSchedule.
func ValidateCronExpr(expr string) error {
	_, err := standardParser.Parse(expr)
	if err != nil {
		return fmt.Errorf("schedule: invalid cron expression %q: %w", expr, err)
	}
	return nil
}
