package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/nebula-tasks/beat/internal/task"
	"github.com/nebula-tasks/beat/internal/telemetry"
)

// ResultMetadata is the per-task record a Backend stores. Result is set iff
// Status is Success; Traceback is set iff Status is Failure; DateDone is
// set once a terminal status is reached and is never cleared except by
// Forget.
type ResultMetadata struct {
	TaskID    string     `json:"task_id" bson:"task_id"`
	Status    task.State `json:"status" bson:"status"`
	Result    *string    `json:"result,omitempty" bson:"result,omitempty"`
	Traceback *string    `json:"traceback,omitempty" bson:"traceback,omitempty"`
	DateDone  *time.Time `json:"date_done,omitempty" bson:"date_done,omitempty"`
}

// Backend is the result-backend capability consumed by workers (to record
// status) and by result.AsyncResult handles (to observe it).
type Backend interface {
	AddTask(ctx context.Context, id string) error
	MarkAsStarted(ctx context.Context, id string) error
	MarkAsDone(ctx context.Context, id, result string, dateDone time.Time) error
	MarkAsFailure(ctx context.Context, id, traceback string, dateDone time.Time) error
	StoreResult(ctx context.Context, id string, meta *ResultMetadata) error
	Forget(ctx context.Context, id string) error
	GetTaskMeta(ctx context.Context, id string) (*ResultMetadata, error)
	GetState(ctx context.Context, id string) (task.State, error)
	GetResult(ctx context.Context, id string) (*string, error)
	GetTraceback(ctx context.Context, id string) (*string, error)
	WaitForTaskState(ctx context.Context, id string, target task.State) (task.State, error)
}

// Storer is the pair of primitives a concrete backend must implement;
// Base derives the rest of Backend from them, the way the original Rust
// trait supplied default method bodies over store_result/get_task_meta.
type Storer interface {
	StoreResult(ctx context.Context, id string, meta *ResultMetadata) error
	GetTaskMeta(ctx context.Context, id string) (*ResultMetadata, error)
}

// Base implements Backend's derived operations given a Storer. Concrete
// backends embed Base and point its Storer field at themselves.
//
// TODO: store_result has no retry policy; overwriting a terminal record
// with a stale non-terminal status is the caller's responsibility to avoid.
type Base struct {
	Storer
	PollInterval time.Duration
	Logger       *slog.Logger
}

// logger returns b.Logger, or the package default if none was set.
func (b *Base) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *Base) AddTask(ctx context.Context, id string) error {
	err := b.StoreResult(ctx, id, &ResultMetadata{TaskID: id, Status: task.Pending})
	if err != nil {
		telemetry.WithTaskID(b.logger(), id).Error("store result failed", "op", "add_task", "error", err)
	}
	return err
}

func (b *Base) MarkAsStarted(ctx context.Context, id string) error {
	err := b.StoreResult(ctx, id, &ResultMetadata{TaskID: id, Status: task.Started})
	if err != nil {
		telemetry.WithTaskID(b.logger(), id).Error("store result failed", "op", "mark_as_started", "error", err)
	}
	return err
}

func (b *Base) MarkAsDone(ctx context.Context, id, result string, dateDone time.Time) error {
	err := b.StoreResult(ctx, id, &ResultMetadata{
		TaskID:   id,
		Status:   task.Success,
		Result:   &result,
		DateDone: &dateDone,
	})
	if err != nil {
		telemetry.WithTaskID(b.logger(), id).Error("store result failed", "op", "mark_as_done", "error", err)
	}
	return err
}

func (b *Base) MarkAsFailure(ctx context.Context, id, traceback string, dateDone time.Time) error {
	err := b.StoreResult(ctx, id, &ResultMetadata{
		TaskID:    id,
		Status:    task.Failure,
		Traceback: &traceback,
		DateDone:  &dateDone,
	})
	if err != nil {
		telemetry.WithTaskID(b.logger(), id).Error("store result failed", "op", "mark_as_failure", "error", err)
	}
	return err
}

func (b *Base) Forget(ctx context.Context, id string) error {
	err := b.StoreResult(ctx, id, nil)
	if err != nil {
		telemetry.WithTaskID(b.logger(), id).Error("store result failed", "op", "forget", "error", err)
	}
	return err
}

func (b *Base) GetState(ctx context.Context, id string) (task.State, error) {
	meta, err := b.GetTaskMeta(ctx, id)
	if err != nil {
		telemetry.WithTaskID(b.logger(), id).Error("get task meta failed", "op", "get_state", "error", err)
		return "", err
	}
	return meta.Status, nil
}

func (b *Base) GetResult(ctx context.Context, id string) (*string, error) {
	meta, err := b.GetTaskMeta(ctx, id)
	if err != nil {
		telemetry.WithTaskID(b.logger(), id).Error("get task meta failed", "op", "get_result", "error", err)
		return nil, err
	}
	return meta.Result, nil
}

func (b *Base) GetTraceback(ctx context.Context, id string) (*string, error) {
	meta, err := b.GetTaskMeta(ctx, id)
	if err != nil {
		telemetry.WithTaskID(b.logger(), id).Error("get task meta failed", "op", "get_traceback", "error", err)
		return nil, err
	}
	return meta.Traceback, nil
}

// WaitForTaskState polls GetTaskMeta every PollInterval (default 200ms)
// until the stored status equals target or reaches a terminal state.
func (b *Base) WaitForTaskState(ctx context.Context, id string, target task.State) (task.State, error) {
	interval := b.PollInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}

	for {
		meta, err := b.GetTaskMeta(ctx, id)
		if err != nil {
			telemetry.WithTaskID(b.logger(), id).Error("get task meta failed", "op", "wait_for_task_state", "error", err)
			return "", err
		}
		if meta.Status == target || meta.Status.IsTerminal() {
			return meta.Status, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}
}
