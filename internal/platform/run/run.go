package run

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type Runner struct {
	Logger          *zap.Logger
	ShutdownTimeout time.Duration
}

func New(log *zap.Logger) *Runner {
	return &Runner{Logger: log, ShutdownTimeout: 10 * time.Second}
}

// WithSignals runs start until it returns or SIGINT/SIGTERM arrives.
// On a signal, shutdown is called with a bounded context and the runner waits
// for start to return. The result is a process exit code.
func (r *Runner) WithSignals(start func(ctx context.Context) error, shutdown func(ctx context.Context) error) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return r.run(ctx, start, shutdown)
}

func (r *Runner) run(ctx context.Context, start func(ctx context.Context) error, shutdown func(ctx context.Context) error) int {
	errCh := make(chan error, 1)
	go func() {
		errCh <- start(ctx)
	}()

	select {
	case <-ctx.Done():
		r.Logger.Info("shutdown signal received")
		if shutdown != nil {
			c, cancel := context.WithTimeout(context.Background(), r.ShutdownTimeout)
			defer cancel()
			if err := shutdown(c); err != nil {
				r.Logger.Error("graceful shutdown failed", zap.Error(err))
				return 1
			}
		}
		return r.exitCode(<-errCh)
	case err := <-errCh:
		return r.exitCode(err)
	}
}

func (r *Runner) exitCode(err error) int {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return 0
	}
	r.Logger.Error("service exited with error", zap.Error(err))
	return 1
}

func Exit(code int) {
	os.Exit(code)
}
