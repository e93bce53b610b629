package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu   sync.Mutex
	seen []Job
	done chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{done: make(chan struct{}, 16)}
}

func (h *recordingHandler) handle(_ context.Context, job Job) error {
	h.mu.Lock()
	h.seen = append(h.seen, job)
	h.mu.Unlock()
	h.done <- struct{}{}
	return nil
}

func (h *recordingHandler) wait(t *testing.T) {
	t.Helper()
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job")
	}
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func TestQueueDispatchesJobs(t *testing.T) {
	handler := newRecordingHandler()
	queue := NewQueue("test", handler.handle, QueueConfig{Workers: 2})
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job{ID: "job-1", Type: "noop"}))
	handler.wait(t)
	require.Equal(t, 1, handler.count())
	require.False(t, handler.seen[0].Enqueued.IsZero())
}

func TestQueueRetriesUntilBudget(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	dropped := make(chan struct{})
	queue := NewQueue("test", func(_ context.Context, job Job) error {
		mu.Lock()
		attempts++
		exhausted := job.Attempt == 2
		mu.Unlock()
		if exhausted {
			defer close(dropped)
		}
		return errors.New("boom")
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job{ID: "job-1", Type: "flaky"}))
	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried to exhaustion")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, attempts)
}

func TestQueueRestartsAfterStop(t *testing.T) {
	handler := newRecordingHandler()
	queue := NewQueue("test", handler.handle, QueueConfig{Workers: 1})

	require.Error(t, queue.Enqueue(Job{ID: "too-early"}))

	queue.Start(context.Background())
	require.NoError(t, queue.Enqueue(Job{ID: "job-1"}))
	handler.wait(t)
	queue.Stop()

	err := queue.Enqueue(Job{ID: "job-2"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not running")

	queue.Start(context.Background())
	defer queue.Stop()
	require.NoError(t, queue.Enqueue(Job{ID: "job-3"}))
	handler.wait(t)
	require.Equal(t, 2, handler.count())
}
