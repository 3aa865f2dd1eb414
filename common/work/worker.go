package work

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrInvalidChannelSize = errors.New("invalid channel size")
	ErrPoolStopped        = errors.New("worker pool has been stopped")
	ErrQueueFull          = errors.New("task queue is full")
	ErrTaskTimeout        = errors.New("task execution timeout")
	ErrTaskPanicked       = errors.New("task panicked")
)

// TaskResult is what a worker reports after running one task.
type TaskResult[T any] struct {
	TaskID    string
	Result    T
	Error     error
	StartTime time.Time
	Duration  time.Duration
}

func (tr *TaskResult[T]) IsSuccess() bool {
	return tr.Error == nil
}

// Executor is a unit of work run by the pool.
type Executor[T any] interface {
	ExecutorID() string
	Execute(ctx context.Context) (T, error)
	OnError(error)
	Timeout() time.Duration // 0 means use pool default
}

// PoolConfig sizes the pool. NumWorkers is the number of tasks that may run
// at once; for the watcher that is the number of open browser pages.
type PoolConfig struct {
	NumWorkers      int
	TaskChannelSize int
	ResultChanSize  int
	TaskTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers:      5,
		TaskChannelSize: 100,
		ResultChanSize:  100,
		TaskTimeout:     3 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}
}

// resultSendTimeout bounds how long a worker waits for the owner to read a result.
const resultSendTimeout = time.Second

type poolState int

const (
	poolIdle poolState = iota
	poolRunning
	poolStopped
)

// Pool runs tasks on a fixed number of workers. Results are published on
// Results and must be drained by the owner.
type Pool[T any] struct {
	config  PoolConfig
	tasks   chan Executor[T]
	results chan TaskResult[T]
	quit    chan struct{}
	wg      sync.WaitGroup

	mu    sync.Mutex
	state poolState

	workers   atomic.Int64
	running   atomic.Int64
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// NewWorkerPool builds a pool with numWorkers workers and the default timeouts.
func NewWorkerPool[T any](numWorkers int, taskChannelSize int) (*Pool[T], error) {
	config := DefaultPoolConfig()
	config.NumWorkers = numWorkers
	config.TaskChannelSize = taskChannelSize
	config.ResultChanSize = numWorkers * 2
	return NewWorkerPoolWithConfig[T](config)
}

func NewWorkerPoolWithConfig[T any](config PoolConfig) (*Pool[T], error) {
	defaults := DefaultPoolConfig()
	switch {
	case config.NumWorkers <= 0:
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkerCount, config.NumWorkers)
	case config.TaskChannelSize < 0:
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannelSize, config.TaskChannelSize)
	}
	if config.ResultChanSize < 0 {
		config.ResultChanSize = config.NumWorkers * 2
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = defaults.TaskTimeout
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	return &Pool[T]{
		config:  config,
		tasks:   make(chan Executor[T], config.TaskChannelSize),
		results: make(chan TaskResult[T], config.ResultChanSize),
		quit:    make(chan struct{}),
	}, nil
}

// Start launches the workers. It is a no-op on a running or stopped pool.
func (p *Pool[T]) Start(ctx context.Context, poolID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case poolRunning:
		return
	case poolStopped:
		log.Error().Str("pool", poolID).Msg("Cannot start a stopped pool")
		return
	}
	p.state = poolRunning

	for n := 0; n < p.config.NumWorkers; n++ {
		p.wg.Add(1)
		go p.worker(ctx, poolID, n)
	}
	log.Info().Str("pool", poolID).Int("numWorkers", p.config.NumWorkers).Msg("Worker pool started")
}

// Stop stops accepting tasks and waits for running tasks up to the shutdown
// timeout. Tasks still queued are dropped. Results is closed once every
// worker has exited, which may be after Stop returns.
func (p *Pool[T]) Stop() {
	p.mu.Lock()
	if p.state == poolStopped {
		p.mu.Unlock()
		return
	}
	p.state = poolStopped
	close(p.quit)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(p.results)
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("All workers stopped gracefully")
	case <-time.After(p.config.ShutdownTimeout):
		log.Warn().
			Dur("timeout", p.config.ShutdownTimeout).
			Int64("running", p.running.Load()).
			Msg("Shutdown timeout exceeded, leaving tasks to finish")
	}
}

func (p *Pool[T]) stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == poolStopped
}

// AddTask queues a task, blocking until there is room, the pool stops or ctx is done.
func (p *Pool[T]) AddTask(ctx context.Context, task Executor[T]) error {
	return p.enqueue(ctx.Done(), task, func() error { return ctx.Err() })
}

// AddTaskNonBlocking queues a task or fails with ErrQueueFull.
func (p *Pool[T]) AddTaskNonBlocking(task Executor[T]) error {
	full := make(chan struct{})
	close(full)
	return p.enqueue(full, task, func() error { return ErrQueueFull })
}

// enqueue sends task unless the pool is stopped or giveUp fires first.
func (p *Pool[T]) enqueue(giveUp <-chan struct{}, task Executor[T], reason func() error) error {
	if p.stopped() {
		return ErrPoolStopped
	}

	select {
	case p.tasks <- task:
		p.submitted.Add(1)
		return nil
	case <-p.quit:
		return ErrPoolStopped
	default:
	}

	select {
	case p.tasks <- task:
		p.submitted.Add(1)
		return nil
	case <-p.quit:
		return ErrPoolStopped
	case <-giveUp:
		return reason()
	}
}

func (p *Pool[T]) Results() <-chan TaskResult[T] {
	return p.results
}

// PoolStats is a point-in-time view of the pool counters.
type PoolStats struct {
	Workers   int64 `json:"workers"`
	Running   int64 `json:"running"`
	InQueue   int64 `json:"in_queue"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:   p.workers.Load(),
		Running:   p.running.Load(),
		InQueue:   int64(len(p.tasks)),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

func (p *Pool[T]) worker(ctx context.Context, poolID string, n int) {
	defer p.wg.Done()
	p.workers.Add(1)
	defer p.workers.Add(-1)

	logger := log.With().Str("pool", poolID).Int("workerID", n).Logger()
	for {
		// quit wins over a ready task so Stop drops the queue
		select {
		case <-p.quit:
			logger.Debug().Msg("Worker stopped due to pool shutdown")
			return
		default:
		}

		select {
		case <-ctx.Done():
			logger.Debug().Msg("Worker stopped due to context cancellation")
			return
		case <-p.quit:
			logger.Debug().Msg("Worker stopped due to pool shutdown")
			return
		case task := <-p.tasks:
			result := p.execute(ctx, task)
			p.publish(result)
			logger.Debug().
				Str("taskID", result.TaskID).
				Dur("duration", result.Duration).
				Bool("success", result.Error == nil).
				Msg("Task completed")
		}
	}
}

// run executes the task, converting a panic into ErrTaskPanicked.
func run[T any](ctx context.Context, task Executor[T]) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return task.Execute(ctx)
}

func (p *Pool[T]) execute(ctx context.Context, task Executor[T]) TaskResult[T] {
	timeout := p.config.TaskTimeout
	if t := task.Timeout(); t > 0 {
		timeout = t
	}
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p.running.Add(1)
	defer p.running.Add(-1)

	start := time.Now()
	value, err := run(taskCtx, task)
	if err != nil && errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrTaskTimeout, err)
	}

	p.completed.Add(1)
	if err != nil {
		p.failed.Add(1)
		task.OnError(err)
	}

	return TaskResult[T]{
		TaskID:    task.ExecutorID(),
		Result:    value,
		Error:     err,
		StartTime: start,
		Duration:  time.Since(start),
	}
}

// publish hands a result to the owner, dropping it if nobody reads in time.
func (p *Pool[T]) publish(result TaskResult[T]) {
	timer := time.NewTimer(resultSendTimeout)
	defer timer.Stop()

	select {
	case p.results <- result:
	case <-timer.C:
		log.Warn().Str("taskID", result.TaskID).Msg("Result channel full after timeout, dropping result")
	case <-p.quit:
		log.Debug().Str("taskID", result.TaskID).Msg("Pool shutting down, dropping result")
	}
}
