package result

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nebula-tasks/beat/internal/backend"
	"github.com/nebula-tasks/beat/internal/task"
)

// memBackend is a minimal in-memory backend.Backend for exercising
// AsyncResult without a real store.
type memBackend struct {
	backend.Base
	records map[string]*backend.ResultMetadata
}

func newMemBackend() *memBackend {
	mb := &memBackend{records: map[string]*backend.ResultMetadata{}}
	mb.Base.Storer = mb
	return mb
}

func (m *memBackend) StoreResult(ctx context.Context, id string, meta *backend.ResultMetadata) error {
	if meta == nil {
		delete(m.records, id)
		return nil
	}
	cp := *meta
	m.records[id] = &cp
	return nil
}

func (m *memBackend) GetTaskMeta(ctx context.Context, id string) (*backend.ResultMetadata, error) {
	meta, ok := m.records[id]
	if !ok {
		return nil, backend.ErrDocumentNotFound
	}
	return meta, nil
}

func TestAsyncResult_NoBackendReturnsNotSet(t *testing.T) {
	r := New("id1", nil)
	ctx := context.Background()

	if _, err := r.State(ctx); !errors.Is(err, backend.ErrNotSet) {
		t.Errorf("State() error = %v, want ErrNotSet", err)
	}
	if err := r.Forget(ctx); !errors.Is(err, backend.ErrNotSet) {
		t.Errorf("Forget() error = %v, want ErrNotSet", err)
	}
}

func TestAsyncResult_S4_MarkAsDoneRoundTrip(t *testing.T) {
	mb := newMemBackend()
	ctx := context.Background()
	done := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := mb.MarkAsDone(ctx, "id1", `"ok"`, done); err != nil {
		t.Fatalf("MarkAsDone: %v", err)
	}

	r := New("id1", mb)

	var v string
	ok, err := r.Result(ctx, &v)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if !ok || v != "ok" {
		t.Errorf("Result() = (%v, %v), want (true, \"ok\")", ok, v)
	}

	state, err := r.State(ctx)
	if err != nil || state != task.Success {
		t.Errorf("State() = (%v, %v), want (Success, nil)", state, err)
	}

	ready, err := r.Ready(ctx)
	if err != nil || !ready {
		t.Errorf("Ready() = (%v, %v), want (true, nil)", ready, err)
	}

	successful, err := r.Successful(ctx)
	if err != nil || !successful {
		t.Errorf("Successful() = (%v, %v), want (true, nil)", successful, err)
	}
}

func TestAsyncResult_S5_Forget(t *testing.T) {
	mb := newMemBackend()
	ctx := context.Background()

	if err := mb.AddTask(ctx, "id1"); err != nil {
		t.Fatal(err)
	}
	r := New("id1", mb)

	if err := r.Forget(ctx); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if _, err := r.State(ctx); !errors.Is(err, backend.ErrDocumentNotFound) {
		t.Errorf("State() after Forget: err = %v, want ErrDocumentNotFound", err)
	}
}

func TestAsyncResult_WaitForCompletion_Failure(t *testing.T) {
	mb := newMemBackend()
	ctx := context.Background()

	if err := mb.MarkAsFailure(ctx, "id1", "boom", time.Now()); err != nil {
		t.Fatal(err)
	}
	r := New("id1", mb)

	ok, err := r.WaitForCompletion(ctx)
	if err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	if ok {
		t.Error("WaitForCompletion() = true, want false for Failure")
	}

	failed, err := r.Failed(ctx)
	if err != nil || !failed {
		t.Errorf("Failed() = (%v, %v), want (true, nil)", failed, err)
	}
}
