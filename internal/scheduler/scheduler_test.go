package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nebula-tasks/beat/internal/broker"
	"github.com/nebula-tasks/beat/internal/schedule"
)

type fakeBroker struct {
	published  []string // queue names, in publish order
	failNext   error
	connErr    bool
}

func (f *fakeBroker) Publish(ctx context.Context, msg *broker.Message, queue string) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.published = append(f.published, queue)
	return nil
}

func (f *fakeBroker) Reconnect(ctx context.Context, timeout time.Duration) error { return nil }

func (f *fakeBroker) IsConnectionError(err error) bool { return f.connErr && err != nil }

func factoryFor(name string) MessageFactory {
	return func() (*broker.Message, error) {
		return &broker.Message{ID: name, Body: []byte(name)}, nil
	}
}

func TestScheduler_S1_FixedDelta(t *testing.T) {
	fb := &fakeBroker{}
	s := New(fb, time.Minute, nil)

	t0 := time.Unix(0, 0).UTC()
	sched, err := schedule.NewDeltaSchedule(10 * time.Second)
	if err != nil {
		t.Fatalf("NewDeltaSchedule: %v", err)
	}
	if _, err := s.ScheduleTask("A", factoryFor("A"), "celery", sched, t0); err != nil {
		t.Fatalf("ScheduleTask: %v", err)
	}

	next, err := s.Tick(context.Background(), t0.Add(5*time.Second))
	if err != nil {
		t.Fatalf("Tick at t=5: %v", err)
	}
	if !next.Equal(t0.Add(10 * time.Second)) {
		t.Errorf("Tick at t=5 next = %v, want %v", next, t0.Add(10*time.Second))
	}
	if len(fb.published) != 0 {
		t.Errorf("Tick at t=5 published %v, want none", fb.published)
	}

	next, err = s.Tick(context.Background(), t0.Add(10*time.Second+time.Millisecond))
	if err != nil {
		t.Fatalf("Tick at t=10.001: %v", err)
	}
	if len(fb.published) != 1 || fb.published[0] != "celery" {
		t.Errorf("Tick at t=10.001 published %v, want one message on celery", fb.published)
	}
	if !next.Equal(t0.Add(20 * time.Second)) {
		t.Errorf("Tick at t=10.001 next = %v, want %v", next, t0.Add(20*time.Second))
	}
}

func TestScheduler_S2_TieBreakInsertionOrder(t *testing.T) {
	fb := &trackingBroker{}
	s := New(fb, time.Minute, nil)

	t0 := time.Unix(0, 0).UTC()
	sched, _ := schedule.NewDeltaSchedule(1 * time.Second)
	if _, err := s.ScheduleTask("A", factoryFor("A"), "q", sched, t0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ScheduleTask("B", factoryFor("B"), "q", sched, t0); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Tick(context.Background(), t0.Add(time.Second)); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if len(fb.ids) != 2 || fb.ids[0] != "A" || fb.ids[1] != "B" {
		t.Errorf("publish order = %v, want [A B]", fb.ids)
	}
}

type trackingBroker struct{ ids []string }

func (tb *trackingBroker) Publish(ctx context.Context, msg *broker.Message, queue string) error {
	tb.ids = append(tb.ids, msg.ID)
	return nil
}
func (tb *trackingBroker) Reconnect(context.Context, time.Duration) error { return nil }
func (tb *trackingBroker) IsConnectionError(error) bool                  { return false }

func TestScheduler_InvariantMarkFiredAdvancesStrictly(t *testing.T) {
	fb := &trackingBroker{}
	s := New(fb, time.Minute, nil)
	t0 := time.Unix(0, 0).UTC()
	sched, _ := schedule.NewDeltaSchedule(10 * time.Second)
	task, err := s.ScheduleTask("A", factoryFor("A"), "q", sched, t0)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Tick(context.Background(), t0.Add(10*time.Second)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !task.NextCallAt.After(t0.Add(10 * time.Second)) {
		t.Errorf("NextCallAt = %v, want strictly after mark_fired instant %v", task.NextCallAt, t0.Add(10*time.Second))
	}
}

func TestScheduler_CatchUpCollapsesToOnePublish(t *testing.T) {
	fb := &trackingBroker{}
	s := New(fb, time.Minute, nil)
	t0 := time.Unix(0, 0).UTC()
	sched, _ := schedule.NewDeltaSchedule(10 * time.Second)
	if _, err := s.ScheduleTask("A", factoryFor("A"), "q", sched, t0); err != nil {
		t.Fatal(err)
	}

	// Jump far past many missed occurrences.
	now := t0.Add(95 * time.Second)
	next, err := s.Tick(context.Background(), now)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(fb.ids) != 1 {
		t.Errorf("published %d messages, want exactly 1 for catch-up", len(fb.ids))
	}
	if !next.After(now) {
		t.Errorf("next = %v, want strictly after now = %v", next, now)
	}
}

func TestScheduler_ConnectionErrorReinsertsUnchanged(t *testing.T) {
	fb := &fakeBroker{connErr: true, failNext: errors.New("connection refused")}
	s := New(fb, time.Minute, nil)
	t0 := time.Unix(0, 0).UTC()
	sched, _ := schedule.NewDeltaSchedule(10 * time.Second)
	task, err := s.ScheduleTask("A", factoryFor("A"), "q", sched, t0)
	if err != nil {
		t.Fatal(err)
	}
	originalNext := task.NextCallAt

	_, err = s.Tick(context.Background(), t0.Add(10*time.Second))
	if err == nil {
		t.Fatal("Tick with connection error: want error, got nil")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (entry must be reinserted)", s.Len())
	}
	if !task.NextCallAt.Equal(originalNext) {
		t.Errorf("NextCallAt changed to %v, want unchanged %v", task.NextCallAt, originalNext)
	}
	if task.TotalRunCount != 0 {
		t.Errorf("TotalRunCount = %d, want 0 (mark_fired must not run on connection failure)", task.TotalRunCount)
	}
}

func TestScheduler_NonConnectionErrorAdvancesAnyway(t *testing.T) {
	fb := &fakeBroker{connErr: false, failNext: errors.New("malformed body")}
	s := New(fb, time.Minute, nil)
	t0 := time.Unix(0, 0).UTC()
	sched, _ := schedule.NewDeltaSchedule(10 * time.Second)
	task, err := s.ScheduleTask("A", factoryFor("A"), "q", sched, t0)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Tick(context.Background(), t0.Add(10*time.Second)); err != nil {
		t.Fatalf("Tick: want nil error for non-connection failure, got %v", err)
	}
	if task.TotalRunCount != 1 {
		t.Errorf("TotalRunCount = %d, want 1 (entry must advance despite publish failure)", task.TotalRunCount)
	}
}

func TestScheduler_EmptyQueueReturnsDefaultInterval(t *testing.T) {
	s := New(&trackingBroker{}, 30*time.Second, nil)
	now := time.Unix(0, 0).UTC()
	next, err := s.Tick(context.Background(), now)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !next.Equal(now.Add(30 * time.Second)) {
		t.Errorf("next = %v, want %v", next, now.Add(30*time.Second))
	}
}

func TestScheduler_RemoveTask(t *testing.T) {
	s := New(&trackingBroker{}, time.Minute, nil)
	sched, _ := schedule.NewDeltaSchedule(time.Second)
	if _, err := s.ScheduleTask("A", factoryFor("A"), "q", sched, time.Unix(0, 0)); err != nil {
		t.Fatal(err)
	}
	if !s.RemoveTask("A") {
		t.Error("RemoveTask(A) = false, want true")
	}
	if s.RemoveTask("A") {
		t.Error("RemoveTask(A) second call = true, want false")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}
