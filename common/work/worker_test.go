package work

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPool(t *testing.T) {
	tests := []struct {
		name            string
		numWorkers      int
		taskChannelSize int
		expectError     bool
	}{
		{"valid pool", 5, 10, false},
		{"zero workers", 0, 10, true},
		{"negative workers", -1, 10, true},
		{"negative channel size", 5, -1, true},
		{"zero channel size", 5, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewWorkerPool[string](tt.numWorkers, tt.taskChannelSize)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, pool)
		})
	}
}

func waitResult[T any](t *testing.T, pool *Pool[T]) TaskResult[T] {
	t.Helper()
	select {
	case result := <-pool.Results():
		return result
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for result")
	}
	return TaskResult[T]{}
}

func TestWorkerPoolBasicOperation(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[string](2, 5)
	require.NoError(t, err)

	pool.Start(ctx, "test-pool")
	defer pool.Stop()

	var executed int64
	task, err := NewTask[string](
		func(ctx context.Context) (string, error) {
			atomic.AddInt64(&executed, 1)
			return "matched", nil
		},
		WithID[string]("watcher-1"),
		WithTimeout[string](5*time.Second),
	)
	require.NoError(t, err)
	require.NoError(t, pool.AddTask(ctx, task))

	result := waitResult(t, pool)
	assert.True(t, result.IsSuccess())
	assert.Equal(t, "matched", result.Result)
	assert.Equal(t, "watcher-1", result.TaskID)
	assert.EqualValues(t, 1, atomic.LoadInt64(&executed))
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[int](3, 10)
	require.NoError(t, err)

	pool.Start(ctx, "concurrency-test-pool")
	defer pool.Stop()

	const numTasks = 10
	var running, peak int64

	for i := 0; i < numTasks; i++ {
		n := i
		task, err := NewTask[int](func(ctx context.Context) (int, error) {
			cur := atomic.AddInt64(&running, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			return n * 2, nil
		})
		require.NoError(t, err)
		require.NoError(t, pool.AddTask(ctx, task))
	}

	for i := 0; i < numTasks; i++ {
		result := waitResult(t, pool)
		assert.True(t, result.IsSuccess())
	}
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(3))
}

func TestWorkerPoolTimeout(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[string](1, 1)
	require.NoError(t, err)

	pool.Start(ctx, "timeout-test-pool")
	defer pool.Stop()

	var handled atomic.Bool
	task, err := NewTask[string](
		func(ctx context.Context) (string, error) {
			select {
			case <-time.After(2 * time.Second):
				return "should not complete", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		},
		WithErrorHandler[string](func(err error) { handled.Store(true) }),
		WithTimeout[string](100*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, pool.AddTask(ctx, task))

	result := waitResult(t, pool)
	assert.False(t, result.IsSuccess())
	assert.ErrorIs(t, result.Error, ErrTaskTimeout)
	assert.True(t, handled.Load())
}

func TestWorkerPoolRecoversPanics(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[string](1, 2)
	require.NoError(t, err)

	pool.Start(ctx, "panic-test-pool")
	defer pool.Stop()

	boom, err := NewTask[string](func(ctx context.Context) (string, error) {
		panic("page crashed")
	})
	require.NoError(t, err)
	ok, err := NewTask[string](func(ctx context.Context) (string, error) {
		return "still alive", nil
	})
	require.NoError(t, err)

	require.NoError(t, pool.AddTask(ctx, boom))
	require.NoError(t, pool.AddTask(ctx, ok))

	first := waitResult(t, pool)
	assert.ErrorIs(t, first.Error, ErrTaskPanicked)

	second := waitResult(t, pool)
	assert.True(t, second.IsSuccess())
	assert.Equal(t, "still alive", second.Result)
}

func TestWorkerPoolGracefulShutdown(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[string](2, 5)
	require.NoError(t, err)

	pool.Start(ctx, "shutdown-test-pool")
	pool.Stop()
	pool.Stop()

	task, err := NewTask[string](func(ctx context.Context) (string, error) {
		return "should not execute", nil
	})
	require.NoError(t, err)

	assert.ErrorIs(t, pool.AddTask(ctx, task), ErrPoolStopped)
	assert.ErrorIs(t, pool.AddTaskNonBlocking(task), ErrPoolStopped)

	_, open := <-pool.Results()
	assert.False(t, open)
}

func TestWorkerPoolStats(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[string](2, 5)
	require.NoError(t, err)

	pool.Start(ctx, "stats-test-pool")
	defer pool.Stop()

	require.Eventually(t, func() bool {
		return pool.Stats().Workers == 2
	}, time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 0, pool.Stats().Submitted)

	task, err := NewTask[string](func(ctx context.Context) (string, error) {
		time.Sleep(50 * time.Millisecond)
		return "test", nil
	})
	require.NoError(t, err)
	require.NoError(t, pool.AddTask(ctx, task))
	assert.EqualValues(t, 1, pool.Stats().Submitted)

	waitResult(t, pool)
	assert.Eventually(t, func() bool {
		return pool.Stats().Completed == 1
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, pool.Stats().Failed)
}

func TestAddTaskNonBlocking(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[string](1, 1)
	require.NoError(t, err)

	pool.Start(ctx, "nonblocking-test-pool")
	defer pool.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	blocker, err := NewTask[string](func(ctx context.Context) (string, error) {
		close(started)
		<-release
		return "task1", nil
	})
	require.NoError(t, err)
	require.NoError(t, pool.AddTask(ctx, blocker))
	<-started

	queued, err := NewTask[string](func(ctx context.Context) (string, error) { return "task2", nil })
	require.NoError(t, err)
	require.NoError(t, pool.AddTaskNonBlocking(queued))

	overflow, err := NewTask[string](func(ctx context.Context) (string, error) { return "task3", nil })
	require.NoError(t, err)
	err = pool.AddTaskNonBlocking(overflow)
	assert.True(t, errors.Is(err, ErrQueueFull), "got %v", err)

	close(release)
}

func TestNewTask(t *testing.T) {
	_, err := NewTask[string](nil)
	assert.ErrorIs(t, err, ErrNilTask)

	_, err = NewTask(func(ctx context.Context) (string, error) { return "", nil }, WithTimeout[string](-time.Second))
	assert.Error(t, err)

	named, err := NewTask(func(ctx context.Context) (string, error) { return "", nil }, WithID[string]("watcher-7"))
	require.NoError(t, err)
	assert.Equal(t, "watcher-7", named.ExecutorID())

	generated, err := NewTask(func(ctx context.Context) (string, error) { return "", nil })
	require.NoError(t, err)
	assert.Len(t, generated.ExecutorID(), 36)
}
