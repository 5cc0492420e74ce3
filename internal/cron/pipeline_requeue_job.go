package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
)

const (
	defaultStaleRunAge   = 15 * time.Minute
	staleRunBatchSize    = 50
	staleRunFailedReason = "worker heartbeat lost"
)

type staleRunSource interface {
	FindStale(ctx context.Context, cutoff time.Time, limit int) ([]models.PipelineRun, error)
	FinishFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type productReverter interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.ProductStatus) (int64, error)
}

// PipelineRequeueJobParams configure the stale-run sweeper.
type PipelineRequeueJobParams struct {
	Logger      *logger.Logger
	Runs        staleRunSource
	Products    productReverter
	StaleRunAge time.Duration
}

// NewPipelineRequeueJob builds the job that fails runs abandoned by a crashed
// worker, including pending runs that no worker ever picked up. The product is
// rolled back to draft so the owner can retry; the run row keeps the failure
// reason.
func NewPipelineRequeueJob(params PipelineRequeueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Runs == nil {
		return nil, fmt.Errorf("run repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	age := params.StaleRunAge
	if age <= 0 {
		age = defaultStaleRunAge
	}
	return &pipelineRequeueJob{
		logg:     params.Logger,
		runs:     params.Runs,
		products: params.Products,
		age:      age,
		now:      time.Now,
	}, nil
}

type pipelineRequeueJob struct {
	logg     *logger.Logger
	runs     staleRunSource
	products productReverter
	age      time.Duration
	now      func() time.Time
}

func (j *pipelineRequeueJob) Name() string { return "pipeline-requeue" }

func (j *pipelineRequeueJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.age)
	stale, err := j.runs.FindStale(ctx, cutoff, staleRunBatchSize)
	if err != nil {
		return fmt.Errorf("finding stale runs: %w", err)
	}
	swept := 0
	for _, run := range stale {
		runCtx := j.logg.WithRunID(j.logg.WithProductID(ctx, run.ProductID.String()), run.ID.String())
		if err := j.runs.FinishFailed(runCtx, run.ID, staleRunFailedReason); err != nil {
			j.logg.Error(runCtx, "failing stale run", err)
			continue
		}
		// Only runs that never finished Stage 1 hold the product in
		// processing; later stages leave status to the pipeline edges.
		if _, err := j.products.UpdateStatus(runCtx, run.ProductID, enums.ProductStatusProcessing, enums.ProductStatusDraft); err != nil {
			j.logg.Error(runCtx, "reverting product of stale run", err)
			continue
		}
		j.logg.Warn(runCtx, "stale pipeline run failed and product reverted")
		swept++
	}
	if swept > 0 {
		j.logg.Info(j.logg.WithField(ctx, "swept", swept), "stale pipeline run sweep complete")
	}
	return nil
}
