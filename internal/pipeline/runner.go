package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/threadline-ai/threadline-backend/pkg/logger"
	"github.com/threadline-ai/threadline-backend/pkg/metrics"
)

// Job is one unit of background work. The context passed to Execute is the
// runner's lifecycle context, not the HTTP request that scheduled the job.
type Job interface {
	Name() string
	Execute(ctx context.Context)
}

// ErrQueueFull is returned when the runner cannot accept more work.
var ErrQueueFull = errors.New("pipeline queue full")

// Runner is a bounded pool of supervised workers draining a submission
// queue. Submission is non-blocking: when the queue is full the caller gets
// ErrQueueFull instead of an unbounded backlog.
type Runner struct {
	queue   chan Job
	workers int
	logg    *logger.Logger
	stats   *metrics.PipelineMetrics

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewRunner builds a runner with the given worker count and queue size.
func NewRunner(workers, queueSize int, logg *logger.Logger, stats *metrics.PipelineMetrics) (*Runner, error) {
	if workers <= 0 {
		return nil, errors.New("worker count must be positive")
	}
	if queueSize <= 0 {
		return nil, errors.New("queue size must be positive")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Runner{
		queue:   make(chan Job, queueSize),
		workers: workers,
		logg:    logg,
		stats:   stats,
		done:    make(chan struct{}),
	}, nil
}

// Start launches the worker pool. Workers exit when ctx is canceled and the
// queue has drained, or immediately on Stop.
func (r *Runner) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		for i := 0; i < r.workers; i++ {
			r.wg.Add(1)
			go r.work(ctx, i)
		}
	})
}

// Submit enqueues a job without blocking.
func (r *Runner) Submit(job Job) error {
	if job == nil {
		return errors.New("job is required")
	}
	select {
	case <-r.done:
		return errors.New("runner stopped")
	default:
	}
	select {
	case r.queue <- job:
		r.stats.SetQueueDepth(len(r.queue))
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop signals workers to exit and waits for in-flight jobs to finish.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}

func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	workerCtx := r.logg.WithField(ctx, "worker", fmt.Sprintf("pipeline-%d", id))
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case job := <-r.queue:
			r.stats.SetQueueDepth(len(r.queue))
			r.run(workerCtx, job)
		}
	}
}

// run executes one job, isolating panics so a single bad run cannot take the
// worker down with it.
func (r *Runner) run(ctx context.Context, job Job) {
	r.stats.RunStarted()
	defer r.stats.RunFinished()
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic: %v", rec)
			r.logg.Error(r.logg.WithField(ctx, "job", job.Name()), "pipeline job panicked", err)
		}
	}()
	job.Execute(ctx)
}

// JobFunc adapts a function to the Job interface.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context)
}

// Name returns the job name.
func (j JobFunc) Name() string {
	return j.JobName
}

// Execute runs the wrapped function.
func (j JobFunc) Execute(ctx context.Context) {
	if j.Fn != nil {
		j.Fn(ctx)
	}
}
