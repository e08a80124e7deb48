package worker

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) CompletePast(ctx context.Context) (int, error) {
	s.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep ran without a deadline")
	}
	return 2, s.err
}

func TestStartRunsImmediatelyAndOnSchedule(t *testing.T) {
	sweeper := &countingSweeper{}
	w := NewCompletionWorker(sweeper, time.Second, time.Second, zerolog.Nop())

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Equal(t, int32(1), sweeper.calls.Load())
	assert.Equal(t, "@every 1s", w.Spec())

	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, 3*time.Second, 50*time.Millisecond)
}

func TestStartTwiceFails(t *testing.T) {
	w := NewCompletionWorker(&countingSweeper{}, time.Minute, time.Second, zerolog.Nop())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}

func TestStopIsIdempotent(t *testing.T) {
	w := NewCompletionWorker(&countingSweeper{}, time.Minute, time.Second, zerolog.Nop())
	w.Stop()
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}

func TestRunOnceLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	sweeper := &countingSweeper{err: errors.New("db down")}
	w := NewCompletionWorker(sweeper, time.Minute, time.Second, zerolog.New(&buf))

	w.RunOnce(context.Background())
	assert.Equal(t, int32(1), sweeper.calls.Load())
	assert.Contains(t, buf.String(), "completion sweep failed")
	assert.Contains(t, buf.String(), "db down")
}

func TestRunOnceSkipsCanceledContext(t *testing.T) {
	sweeper := &countingSweeper{}
	w := NewCompletionWorker(sweeper, time.Minute, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.RunOnce(ctx)
	assert.Zero(t, sweeper.calls.Load())
}

type blockingSweeper struct {
	entered chan struct{}
}

func (s *blockingSweeper) CompletePast(ctx context.Context) (int, error) {
	close(s.entered)
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestStopInterruptsFirstSweep(t *testing.T) {
	sweeper := &blockingSweeper{entered: make(chan struct{})}
	w := NewCompletionWorker(sweeper, time.Minute, time.Hour, zerolog.Nop())

	started := make(chan error, 1)
	go func() { started <- w.Start(context.Background()) }()
	<-sweeper.entered

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked behind the first sweep")
	}
	require.NoError(t, <-started)

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Nil(t, w.cron)
}
