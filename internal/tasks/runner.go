// Package tasks runs supervised fire-and-forget background work. Detached
// tasks carry a non-crashing error boundary: failures and panics are logged,
// never propagated to the reply path that spawned them.
package tasks

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Runner dispatches detached tasks and can wait for them on shutdown.
type Runner struct {
	Log *zap.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func NewRunner(log *zap.Logger) *Runner {
	return &Runner{Log: log}
}

// Go runs fn in a detached goroutine. Errors and panics are logged under the
// task name and swallowed. After Close, submissions are dropped.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.Log.Warn("background task dropped after shutdown", zap.String("task", name))
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.Log.Error("background task panicked",
					zap.String("task", name), zap.Any("panic", rec))
			}
		}()
		if err := fn(context.Background()); err != nil {
			r.Log.Error("background task failed",
				zap.String("task", name), zap.Error(err))
		}
	}()
}

// Close stops accepting tasks and waits for in-flight ones until ctx is done.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
