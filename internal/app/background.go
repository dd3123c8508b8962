package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTaskTimeout bounds a background task that was given no timeout.
const DefaultTaskTimeout = 2 * time.Minute

// Background runs detached work whose failure must not reach the caller.
// Errors and panics are logged and dropped. Wait blocks until every task
// started so far has finished.
type Background struct {
	wg      sync.WaitGroup
	logger  *zap.Logger
	timeout time.Duration
}

func NewBackground(logger *zap.Logger, timeout time.Duration) *Background {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	return &Background{logger: logger, timeout: timeout}
}

// Go starts fn. The task keeps ctx's values but not its cancellation.
func (b *Background) Go(ctx context.Context, name string, fn func(context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("background task panicked", zap.String("task", name), zap.Any("panic", r))
			}
		}()

		taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		defer cancel()

		start := time.Now()
		if err := fn(taskCtx); err != nil {
			b.logger.Warn("background task failed", zap.String("task", name), zap.Error(err))
			return
		}
		b.logger.Debug("background task finished", zap.String("task", name), zap.Duration("elapsed", time.Since(start)))
	}()
}

func (b *Background) Wait() {
	b.wg.Wait()
}
