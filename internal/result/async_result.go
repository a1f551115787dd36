package result

import (
	"context"
	"encoding/json"

	"github.com/nebula-tasks/beat/internal/backend"
	"github.com/nebula-tasks/beat/internal/task"
)

// AsyncResult is a lightweight value pairing a task id with an optional
// shared Backend. It is cheap to copy and carries no state of its own; the
// Backend is shared across every handle for the same id. A handle created
// with a nil backend answers every operation with backend.ErrNotSet, the
// same way a zero value is always safe to use.
type AsyncResult struct {
	taskID  string
	backend backend.Backend
}

// New builds a handle for taskID backed by b. b may be nil.
func New(taskID string, b backend.Backend) AsyncResult {
	return AsyncResult{taskID: taskID, backend: b}
}

// TaskID returns the id this handle observes.
func (r AsyncResult) TaskID() string { return r.taskID }

func (r AsyncResult) throwIfBackendNotSet() error {
	if r.backend == nil {
		return backend.ErrNotSet
	}
	return nil
}

// State returns the task's current TaskState.
func (r AsyncResult) State(ctx context.Context) (task.State, error) {
	if err := r.throwIfBackendNotSet(); err != nil {
		return "", err
	}
	return r.backend.GetState(ctx, r.taskID)
}

// Result deserializes the stored JSON result payload into v. It returns
// (false, nil) if no result is stored yet.
func (r AsyncResult) Result(ctx context.Context, v any) (bool, error) {
	if err := r.throwIfBackendNotSet(); err != nil {
		return false, err
	}
	raw, err := r.backend.GetResult(ctx, r.taskID)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal([]byte(*raw), v); err != nil {
		return false, &backend.SerializationError{Err: err}
	}
	return true, nil
}

// Traceback returns the stored failure description, nil if none is set.
func (r AsyncResult) Traceback(ctx context.Context) (*string, error) {
	if err := r.throwIfBackendNotSet(); err != nil {
		return nil, err
	}
	return r.backend.GetTraceback(ctx, r.taskID)
}

// Ready reports whether the task reached a terminal state.
func (r AsyncResult) Ready(ctx context.Context) (bool, error) {
	state, err := r.State(ctx)
	if err != nil {
		return false, err
	}
	return state.IsTerminal(), nil
}

// Successful reports whether the task finished with Success.
func (r AsyncResult) Successful(ctx context.Context) (bool, error) {
	state, err := r.State(ctx)
	if err != nil {
		return false, err
	}
	return state == task.Success, nil
}

// Failed reports whether the task finished with Failure.
func (r AsyncResult) Failed(ctx context.Context) (bool, error) {
	state, err := r.State(ctx)
	if err != nil {
		return false, err
	}
	return state == task.Failure, nil
}

// Forget deletes the task's stored record.
func (r AsyncResult) Forget(ctx context.Context) error {
	if err := r.throwIfBackendNotSet(); err != nil {
		return err
	}
	return r.backend.Forget(ctx, r.taskID)
}

// WaitForCompletion blocks until the task reaches a terminal state,
// returning true on Success and false on Failure.
func (r AsyncResult) WaitForCompletion(ctx context.Context) (bool, error) {
	if err := r.throwIfBackendNotSet(); err != nil {
		return false, err
	}
	state, err := r.backend.WaitForTaskState(ctx, r.taskID, task.Success)
	if err != nil {
		return false, err
	}
	return state == task.Success, nil
}
