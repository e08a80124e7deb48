// Package worker runs the background jobs of the booking core.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper completes appointments whose time has passed.
type Sweeper interface {
	CompletePast(ctx context.Context) (int, error)
}

// CompletionWorker runs the sweep on a cron schedule. A run that is still in
// progress when the next tick fires makes that tick a no-op.
type CompletionWorker struct {
	sweeper  Sweeper
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewCompletionWorker(s Sweeper, interval, timeout time.Duration, logger zerolog.Logger) *CompletionWorker {
	if s == nil {
		panic("worker: sweeper required")
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &CompletionWorker{
		sweeper:  s,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With().Str("component", "completion-worker").Logger(),
	}
}

// Spec is the cron expression the worker registers.
func (w *CompletionWorker) Spec() string {
	return fmt.Sprintf("@every %s", w.interval)
}

// Start runs one sweep immediately and then schedules the rest. Runs stop
// when ctx is canceled or Stop is called. The first sweep runs without the
// worker mutex held, so Stop can interrupt it.
func (w *CompletionWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cron != nil {
		w.mu.Unlock()
		return errors.New("completion worker already started")
	}

	baseCtx, cancel := context.WithCancel(ctx)
	logger := cronLogger{w.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(w.Spec(), func() { w.RunOnce(baseCtx) }); err != nil {
		w.mu.Unlock()
		cancel()
		return fmt.Errorf("schedule completion sweep: %w", err)
	}
	w.cron, w.baseCtx, w.cancel = c, baseCtx, cancel
	w.mu.Unlock()

	// Run once at startup
	w.RunOnce(baseCtx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != c {
		// Stopped during the first sweep.
		return nil
	}
	c.Start()
	w.logger.Info().Str("schedule", w.Spec()).Msg("completion worker started")
	return nil
}

// Stop cancels pending work and waits for a scheduled sweep to return.
func (w *CompletionWorker) Stop() {
	w.mu.Lock()
	c, cancel := w.cron, w.cancel
	w.cron = nil
	w.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	w.logger.Info().Msg("completion worker stopped")
}

// RunOnce performs a single bounded sweep and logs the outcome.
func (w *CompletionWorker) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	n, err := w.sweeper.CompletePast(runCtx)
	if err != nil {
		w.logger.Error().Err(err).Int("completed", n).Msg("completion sweep failed")
		return
	}
	w.logger.Debug().Int("completed", n).Dur("took", time.Since(start)).Msg("completion sweep done")
}

// cronLogger adapts zerolog to cron's logging interface.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
