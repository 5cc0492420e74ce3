package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/threadline-ai/threadline-backend/pkg/logger"
	"github.com/threadline-ai/threadline-backend/pkg/metrics"
)

func newTestRunner(t *testing.T, workers, queueSize int) *Runner {
	t.Helper()
	runner, err := NewRunner(workers, queueSize, logger.New(logger.Options{ServiceName: "test"}), metrics.NewPipelineMetrics(nil))
	if err != nil {
		t.Fatalf("building runner: %v", err)
	}
	return runner
}

func TestRunnerExecutesSubmittedJobs(t *testing.T) {
	runner := newTestRunner(t, 2, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner.Start(ctx)
	defer runner.Stop()

	var executed atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		err := runner.Submit(JobFunc{JobName: "count", Fn: func(context.Context) {
			if executed.Add(1) == 4 {
				close(done)
			}
		}})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("jobs did not finish, executed=%d", executed.Load())
	}
}

func TestRunnerRejectsWhenQueueFull(t *testing.T) {
	runner := newTestRunner(t, 1, 1)
	// Not started, so the queue cannot drain.
	if err := runner.Submit(JobFunc{JobName: "first", Fn: func(context.Context) {}}); err != nil {
		t.Fatalf("first submit should fit the queue: %v", err)
	}
	err := runner.Submit(JobFunc{JobName: "second", Fn: func(context.Context) {}})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestRunnerIsolatesPanics(t *testing.T) {
	runner := newTestRunner(t, 1, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner.Start(ctx)
	defer runner.Stop()

	survived := make(chan struct{})
	if err := runner.Submit(JobFunc{JobName: "panics", Fn: func(context.Context) {
		panic("stage blew up")
	}}); err != nil {
		t.Fatalf("submitting panicking job: %v", err)
	}
	if err := runner.Submit(JobFunc{JobName: "survivor", Fn: func(context.Context) {
		close(survived)
	}}); err != nil {
		t.Fatalf("submitting follow-up job: %v", err)
	}

	select {
	case <-survived:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panicking job")
	}
}

func TestRunnerRejectsAfterStop(t *testing.T) {
	runner := newTestRunner(t, 1, 1)
	runner.Start(context.Background())
	runner.Stop()

	if err := runner.Submit(JobFunc{JobName: "late", Fn: func(context.Context) {}}); err == nil {
		t.Fatal("expected submit after stop to fail")
	}
}

func TestNewRunnerValidation(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	if _, err := NewRunner(0, 1, logg, nil); err == nil {
		t.Fatal("expected error for zero workers")
	}
	if _, err := NewRunner(1, 0, logg, nil); err == nil {
		t.Fatal("expected error for zero queue size")
	}
	if _, err := NewRunner(1, 1, nil, nil); err == nil {
		t.Fatal("expected error for nil logger")
	}
}
