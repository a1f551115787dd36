package backend

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nebula-tasks/beat/internal/task"
)

// fakeRedisClient implements redisClient over an in-memory map, so these
// tests exercise RedisBackend's encoding and key-naming logic without a
// real Redis server.
type fakeRedisClient struct {
	data map[string][]byte
}

func newFakeRedisClient() *fakeRedisClient { return &fakeRedisClient{data: map[string][]byte{}} }

func (f *fakeRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	v, ok := f.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(string(v))
	return cmd
}

func (f *fakeRedisClient) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	switch v := value.(type) {
	case []byte:
		f.data[key] = v
	case string:
		f.data[key] = []byte(v)
	}
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestRedisBackend_StoreAndGetRoundTrip(t *testing.T) {
	rb := newRedisBackend(newFakeRedisClient())
	ctx := context.Background()

	if err := rb.AddTask(ctx, "id1"); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	meta, err := rb.GetTaskMeta(ctx, "id1")
	if err != nil {
		t.Fatalf("GetTaskMeta: %v", err)
	}
	if meta.TaskID != "id1" {
		t.Errorf("TaskID = %q, want id1", meta.TaskID)
	}
}

func TestRedisBackend_StoreAndGetRoundTrip_FullyPopulated(t *testing.T) {
	rb := newRedisBackend(newFakeRedisClient())
	ctx := context.Background()

	result := `{"value": 42}`
	traceback := "Traceback (most recent call last):\n  ...\nValueError: boom"
	dateDone := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	want := &ResultMetadata{
		TaskID:    "id-full",
		Status:    task.Failure,
		Result:    &result,
		Traceback: &traceback,
		DateDone:  &dateDone,
	}

	if err := rb.StoreResult(ctx, want.TaskID, want); err != nil {
		t.Fatalf("StoreResult: %v", err)
	}

	got, err := rb.GetTaskMeta(ctx, want.TaskID)
	if err != nil {
		t.Fatalf("GetTaskMeta: %v", err)
	}

	if got.TaskID != want.TaskID {
		t.Errorf("TaskID = %q, want %q", got.TaskID, want.TaskID)
	}
	if got.Status != want.Status {
		t.Errorf("Status = %q, want %q", got.Status, want.Status)
	}
	if got.Result == nil || *got.Result != *want.Result {
		t.Errorf("Result = %v, want %v", got.Result, want.Result)
	}
	if got.Traceback == nil || *got.Traceback != *want.Traceback {
		t.Errorf("Traceback = %v, want %v", got.Traceback, want.Traceback)
	}
	if got.DateDone == nil || !got.DateDone.Equal(*want.DateDone) {
		t.Errorf("DateDone = %v, want %v", got.DateDone, want.DateDone)
	}
}

func TestRedisBackend_GetTaskMeta_NotFound(t *testing.T) {
	rb := newRedisBackend(newFakeRedisClient())
	if _, err := rb.GetTaskMeta(context.Background(), "missing"); err != ErrDocumentNotFound {
		t.Errorf("GetTaskMeta() error = %v, want ErrDocumentNotFound", err)
	}
}

func TestRedisBackend_Forget_S5(t *testing.T) {
	rb := newRedisBackend(newFakeRedisClient())
	ctx := context.Background()

	if err := rb.AddTask(ctx, "id1"); err != nil {
		t.Fatal(err)
	}
	if err := rb.Forget(ctx, "id1"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if _, err := rb.GetTaskMeta(ctx, "id1"); err != ErrDocumentNotFound {
		t.Errorf("GetTaskMeta after Forget: err = %v, want ErrDocumentNotFound", err)
	}
}
