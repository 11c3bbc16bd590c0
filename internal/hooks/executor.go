package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aide/internal/logging"
)

// Executor is a bounded worker pool for hook fan-out. One event's hooks run
// in parallel on it; results come back in priority order regardless of
// completion order.
type Executor struct {
	mu             sync.Mutex
	jobs           chan job
	wg             sync.WaitGroup
	maxWorkers     int
	defaultTimeout time.Duration
	closed         bool
}

type job struct {
	ctx     context.Context
	hook    *Hook
	payload map[string]any
	done    chan Result
}

// NewExecutor starts a pool with the given worker count and default
// per-hook timeout.
func NewExecutor(maxWorkers int, defaultTimeout time.Duration) *Executor {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}

	e := &Executor{
		jobs:           make(chan job),
		maxWorkers:     maxWorkers,
		defaultTimeout: defaultTimeout,
	}
	for i := 0; i < maxWorkers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	logging.HooksDebug("Hook executor started with %d workers", maxWorkers)
	return e
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for j := range e.jobs {
		j.done <- e.runOne(j.ctx, j.hook, j.payload)
	}
}

// runOne executes a single hook honoring its timeout. A timeout yields a
// failed result with exit code 124 instead of an error.
func (e *Executor) runOne(ctx context.Context, hook *Hook, payload map[string]any) Result {
	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	type outcome struct {
		res *Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("hook panicked: %v", r)}
			}
		}()
		res, err := hook.Run(ctx, payload)
		ch <- outcome{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		logging.Hooks("Hook %s timed out after %v", hook.Name, timeout)
		return Result{
			HookName: hook.Name,
			Success:  false,
			ExitCode: TimeoutExitCode,
			Message:  fmt.Sprintf("Hook timed out after %v", timeout),
			Duration: time.Since(start),
		}
	case out := <-ch:
		duration := time.Since(start)
		if out.err != nil {
			return Result{
				HookName: hook.Name,
				Success:  false,
				ExitCode: 1,
				Message:  out.err.Error(),
				Duration: duration,
			}
		}
		res := *out.res
		res.HookName = hook.Name
		res.Duration = duration
		return res
	}
}

// Submit queues one hook and returns the channel its result will arrive on.
// A shut-down executor reports failure immediately. The lock is held across
// the send so Shutdown cannot close the jobs channel mid-submission.
func (e *Executor) Submit(ctx context.Context, hook *Hook, payload map[string]any) <-chan Result {
	done := make(chan Result, 1)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		done <- Result{
			HookName: hook.Name,
			Success:  false,
			ExitCode: 1,
			Message:  "hook executor is shut down",
		}
		return done
	}
	e.jobs <- job{ctx: ctx, hook: hook, payload: payload, done: done}
	e.mu.Unlock()

	return done
}

// Shutdown drains the pool. Further submissions fail until a new executor
// is created.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.jobs)
	e.mu.Unlock()

	e.wg.Wait()
	logging.HooksDebug("Hook executor shut down")
}

// Global executor lifecycle. After Shutdown the next Global call recreates
// the pool.
var (
	globalMu       sync.Mutex
	globalExecutor *Executor
)

// Global returns the process-wide executor, creating it on first use or
// after a shutdown.
func Global(maxWorkers int, defaultTimeout time.Duration) *Executor {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalExecutor == nil || globalExecutor.isClosed() {
		globalExecutor = NewExecutor(maxWorkers, defaultTimeout)
	}
	return globalExecutor
}

// ShutdownGlobal stops the process-wide executor if it is running.
func ShutdownGlobal() {
	globalMu.Lock()
	e := globalExecutor
	globalMu.Unlock()

	if e != nil {
		e.Shutdown()
	}
}

func (e *Executor) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
