package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bom "github.com/threadline-ai/threadline-backend/internal/boms"
	forecast "github.com/threadline-ai/threadline-backend/internal/forecasts"
	product "github.com/threadline-ai/threadline-backend/internal/products"
	supplier "github.com/threadline-ai/threadline-backend/internal/suppliers"
	"github.com/threadline-ai/threadline-backend/pkg/config"
	"github.com/threadline-ai/threadline-backend/pkg/db"
	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-ai/threadline-backend/pkg/errors"
	"github.com/threadline-ai/threadline-backend/pkg/inference"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
	"github.com/threadline-ai/threadline-backend/pkg/metrics"
	"github.com/threadline-ai/threadline-backend/pkg/outbox"
	"github.com/threadline-ai/threadline-backend/pkg/outbox/payloads"
	"github.com/threadline-ai/threadline-backend/pkg/ratelimit"
)

const (
	defaultYieldBuffer = 10
	maxYieldBuffer     = 50
)

// StartGenerationInput carries the caller-supplied generation options.
type StartGenerationInput struct {
	YieldBuffer *float64 `json:"yieldBuffer" validate:"omitempty,gte=0,lte=50"`
}

// StartResult is the accepted acknowledgement for a scheduled run.
type StartResult struct {
	ProductID uuid.UUID           `json:"productId"`
	RunID     uuid.UUID           `json:"runId"`
	Status    enums.ProductStatus `json:"status"`
}

// RunDTO is the API shape of one pipeline run.
type RunDTO struct {
	ID             uuid.UUID               `json:"id"`
	ProductID      uuid.UUID               `json:"productId"`
	BOMID          *uuid.UUID              `json:"bomId,omitempty"`
	Status         enums.PipelineRunStatus `json:"status"`
	YieldBuffer    float64                 `json:"yieldBuffer"`
	GenerationDone bool                    `json:"generationDone"`
	ForecastDone   bool                    `json:"forecastDone"`
	SourcingDone   bool                    `json:"sourcingDone"`
	SuppliersFound int                     `json:"suppliersFound"`
	ErrorReason    *string                 `json:"errorReason,omitempty"`
	StartedAt      *time.Time              `json:"startedAt,omitempty"`
	FinishedAt     *time.Time              `json:"finishedAt,omitempty"`
	CreatedAt      time.Time               `json:"createdAt"`
}

// Service schedules and executes the BOM enrichment pipeline.
type Service interface {
	StartGeneration(ctx context.Context, userID, productID uuid.UUID, input StartGenerationInput) (*StartResult, error)
	ListRuns(ctx context.Context, userID, productID uuid.UUID) ([]RunDTO, error)
}

// Deps bundles the collaborators the pipeline service needs.
type Deps struct {
	Config    config.PipelineConfig
	DBClient  *db.Client
	Products  *product.Repository
	BOMs      *bom.Repository
	Suppliers *supplier.Repository
	Forecasts *forecast.Repository
	Runs      *RunRepository
	Inference inference.Service
	Lease     *Lease
	Limiter   *ratelimit.Limiter
	Runner    *Runner
	Outbox    *outbox.Service
	Logger    *logger.Logger
	Metrics   *metrics.PipelineMetrics
	WorkerID  string
}

type service struct {
	cfg       config.PipelineConfig
	dbClient  *db.Client
	products  *product.Repository
	boms      *bom.Repository
	suppliers *supplier.Repository
	forecasts *forecast.Repository
	runs      *RunRepository
	inference inference.Service
	lease     *Lease
	limiter   *ratelimit.Limiter
	runner    *Runner
	outboxSvc *outbox.Service
	logg      *logger.Logger
	stats     *metrics.PipelineMetrics
	workerID  string
}

// NewService wires the pipeline orchestrator.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.DBClient == nil:
		return nil, fmt.Errorf("db client required")
	case deps.Products == nil:
		return nil, fmt.Errorf("product repository required")
	case deps.BOMs == nil:
		return nil, fmt.Errorf("bom repository required")
	case deps.Suppliers == nil:
		return nil, fmt.Errorf("supplier repository required")
	case deps.Forecasts == nil:
		return nil, fmt.Errorf("forecast repository required")
	case deps.Runs == nil:
		return nil, fmt.Errorf("run repository required")
	case deps.Inference == nil:
		return nil, fmt.Errorf("inference client required")
	case deps.Lease == nil:
		return nil, fmt.Errorf("lease required")
	case deps.Limiter == nil:
		return nil, fmt.Errorf("rate limiter required")
	case deps.Runner == nil:
		return nil, fmt.Errorf("runner required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox service required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cfg:       deps.Config,
		dbClient:  deps.DBClient,
		products:  deps.Products,
		boms:      deps.BOMs,
		suppliers: deps.Suppliers,
		forecasts: deps.Forecasts,
		runs:      deps.Runs,
		inference: deps.Inference,
		lease:     deps.Lease,
		limiter:   deps.Limiter,
		runner:    deps.Runner,
		outboxSvc: deps.Outbox,
		logg:      deps.Logger,
		stats:     deps.Metrics,
		workerID:  deps.WorkerID,
	}, nil
}

// StartGeneration validates preconditions, records the run, flips the
// product to processing and hands the body to the runner. The caller gets an
// acknowledgement immediately; everything after this is delivered through
// notifications or by re-reading the product.
func (s *service) StartGeneration(ctx context.Context, userID, productID uuid.UUID, input StartGenerationInput) (*StartResult, error) {
	prod, err := s.loadOwned(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	assets, err := s.products.ListAssets(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing product assets")
	}
	yieldBuffer, err := validateStart(prod, assets, input.YieldBuffer)
	if err != nil {
		return nil, err
	}

	leaseToken, acquired, err := s.lease.Acquire(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring pipeline lease")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a generation pipeline is already running for this product")
	}

	run := &models.PipelineRun{
		ProductID:   productID,
		Status:      enums.PipelineRunPending,
		YieldBuffer: yieldBuffer,
	}
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.runs.WithTx(tx).Create(ctx, run); err != nil {
			if db.IsUniqueViolation(err, activeRunIndex) {
				return pkgerrors.New(pkgerrors.CodeConflict, "a generation pipeline is already running for this product")
			}
			return err
		}
		changed, err := s.products.WithTx(tx).UpdateStatus(ctx, productID, enums.ProductStatusDraft, enums.ProductStatusProcessing)
		if err != nil {
			return err
		}
		if changed == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product status changed concurrently")
		}
		return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductStatusChanged,
			AggregateType: enums.AggregateProduct,
			AggregateID:   productID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.ProductStatusChangedEvent{
				ProductID: productID,
				From:      enums.ProductStatusDraft,
				To:        enums.ProductStatusProcessing,
				RunID:     run.ID,
			},
			Version: 1,
		})
	})
	if err != nil {
		s.lease.Release(ctx, productID, leaseToken)
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "scheduling pipeline run")
	}

	job := JobFunc{
		JobName: "pipeline-run",
		Fn: func(jobCtx context.Context) {
			s.executeRun(jobCtx, run.ID, productID, leaseToken)
		},
	}
	if err := s.runner.Submit(job); err != nil {
		s.abortUnstarted(ctx, run.ID, productID, leaseToken, err)
		if errors.Is(err, ErrQueueFull) {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "generation capacity exhausted, retry shortly")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "submitting pipeline run")
	}

	return &StartResult{
		ProductID: productID,
		RunID:     run.ID,
		Status:    enums.ProductStatusProcessing,
	}, nil
}

// abortUnstarted undoes the synchronous bookkeeping when the run never made
// it onto the queue: the product reverts to draft and the run is failed.
func (s *service) abortUnstarted(ctx context.Context, runID, productID uuid.UUID, leaseToken string, cause error) {
	logCtx := s.logg.WithRunID(s.logg.WithProductID(ctx, productID.String()), runID.String())
	if _, err := s.products.UpdateStatus(ctx, productID, enums.ProductStatusProcessing, enums.ProductStatusDraft); err != nil {
		s.logg.Error(logCtx, "reverting product status after failed submit", err)
	}
	if err := s.runs.FinishFailed(ctx, runID, fmt.Sprintf("not scheduled: %v", cause)); err != nil {
		s.logg.Error(logCtx, "failing unscheduled run", err)
	}
	s.lease.Release(ctx, productID, leaseToken)
}

// ListRuns returns the product's run history, newest first.
func (s *service) ListRuns(ctx context.Context, userID, productID uuid.UUID) ([]RunDTO, error) {
	if _, err := s.loadOwned(ctx, userID, productID); err != nil {
		return nil, err
	}
	runs, err := s.runs.ListByProduct(ctx, productID, 20)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing pipeline runs")
	}
	out := make([]RunDTO, 0, len(runs))
	for i := range runs {
		out = append(out, newRunDTO(&runs[i]))
	}
	return out, nil
}

func newRunDTO(run *models.PipelineRun) RunDTO {
	return RunDTO{
		ID:             run.ID,
		ProductID:      run.ProductID,
		BOMID:          run.BOMID,
		Status:         run.Status,
		YieldBuffer:    run.YieldBuffer,
		GenerationDone: run.GenerationDone,
		ForecastDone:   run.ForecastDone,
		SourcingDone:   run.SourcingDone,
		SuppliersFound: run.SuppliersFound,
		ErrorReason:    run.ErrorReason,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		CreatedAt:      run.CreatedAt,
	}
}

func (s *service) loadOwned(ctx context.Context, userID, productID uuid.UUID) (*models.Product, error) {
	prod, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if prod.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another user")
	}
	return prod, nil
}

// validateStart checks the synchronous preconditions and resolves the yield
// buffer, defaulting to 10 percent.
func validateStart(prod *models.Product, assets []models.ProductAsset, yieldBuffer *float64) (float64, error) {
	if len(assets) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product has no image assets")
	}
	if prod.Status != enums.ProductStatusDraft {
		return 0, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("generation can only start from draft, product is %s", prod.Status))
	}
	resolved := float64(defaultYieldBuffer)
	if yieldBuffer != nil {
		resolved = *yieldBuffer
	}
	if resolved < 0 || resolved > maxYieldBuffer {
		return 0, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("yield buffer must be between 0 and %d", maxYieldBuffer))
	}
	return resolved, nil
}
