package work

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNilTask is returned by NewTask when no function is given.
var ErrNilTask = errors.New("task function is nil")

// TaskOption configures a task built by NewTask.
type TaskOption[T any] func(*funcTask[T])

// funcTask adapts a plain function to Executor.
type funcTask[T any] struct {
	id      string
	fn      func(ctx context.Context) (T, error)
	onError func(error)
	timeout time.Duration
}

// WithID names the task. The scheduler uses the watcher id so pool logs
// and results can be traced back to a watcher.
func WithID[T any](id string) TaskOption[T] {
	return func(t *funcTask[T]) {
		t.id = id
	}
}

// WithErrorHandler is called with the error of a failed, timed out or
// panicking run.
func WithErrorHandler[T any](handler func(error)) TaskOption[T] {
	return func(t *funcTask[T]) {
		t.onError = handler
	}
}

// WithTimeout overrides the pool's task timeout.
func WithTimeout[T any](timeout time.Duration) TaskOption[T] {
	return func(t *funcTask[T]) {
		t.timeout = timeout
	}
}

// NewTask wraps fn as an Executor. Without WithID the id is a UUIDv7.
func NewTask[T any](fn func(ctx context.Context) (T, error), options ...TaskOption[T]) (Executor[T], error) {
	if fn == nil {
		return nil, ErrNilTask
	}

	t := &funcTask[T]{fn: fn}
	for _, opt := range options {
		opt(t)
	}

	if t.timeout < 0 {
		return nil, fmt.Errorf("negative task timeout %s", t.timeout)
	}
	if t.id == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate task id: %w", err)
		}
		t.id = id.String()
	}
	return t, nil
}

func (t *funcTask[T]) ExecutorID() string { return t.id }

func (t *funcTask[T]) Execute(ctx context.Context) (T, error) { return t.fn(ctx) }

func (t *funcTask[T]) Timeout() time.Duration { return t.timeout }

func (t *funcTask[T]) OnError(err error) {
	if t.onError != nil {
		t.onError(err)
	}
}
