package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

// activeRunIndex is the partial unique index on pipeline_runs(product_id)
// where status in (pending, running). It is the durable guard behind the
// redis lease: even if the lease expires, a second active run for the same
// product cannot be inserted.
const activeRunIndex = "idx_pipeline_runs_one_active"

// RunRepository persists pipeline_runs rows.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository builds a repository tied to the provided GORM DB.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *RunRepository) WithTx(tx *gorm.DB) *RunRepository {
	return &RunRepository{db: tx}
}

// Create inserts a new run row. A unique violation on the active-run index
// means another run is already in flight for the product.
func (r *RunRepository) Create(ctx context.Context, run *models.PipelineRun) (*models.PipelineRun, error) {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// FindByID loads one run.
func (r *RunRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.PipelineRun, error) {
	var run models.PipelineRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// MarkRunning records that a worker picked the run up.
func (r *RunRepository) MarkRunning(ctx context.Context, id uuid.UUID, workerID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.PipelineRun{}).
		Where("id = ? AND status = ?", id, enums.PipelineRunPending).
		Updates(map[string]any{
			"status":       enums.PipelineRunRunning,
			"worker_id":    workerID,
			"started_at":   now,
			"heartbeat_at": now,
		}).Error
}

// Heartbeat refreshes the liveness timestamp for a running run.
func (r *RunRepository) Heartbeat(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PipelineRun{}).
		Where("id = ? AND status = ?", id, enums.PipelineRunRunning).
		UpdateColumn("heartbeat_at", time.Now()).Error
}

// MarkGenerationDone records the Stage 1 result on the run.
func (r *RunRepository) MarkGenerationDone(ctx context.Context, id, bomID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PipelineRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"generation_done": true,
			"bom_id":          bomID,
		}).Error
}

// MarkForecastDone records Stage 2a completion.
func (r *RunRepository) MarkForecastDone(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PipelineRun{}).
		Where("id = ?", id).
		UpdateColumn("forecast_done", true).Error
}

// MarkSourcingDone records Stage 2b completion and the association tally.
func (r *RunRepository) MarkSourcingDone(ctx context.Context, id uuid.UUID, suppliersFound int) error {
	return r.db.WithContext(ctx).
		Model(&models.PipelineRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"sourcing_done":   true,
			"suppliers_found": suppliersFound,
		}).Error
}

// FinishSucceeded moves the run to its terminal success state.
func (r *RunRepository) FinishSucceeded(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PipelineRun{}).
		Where("id = ? AND status = ?", id, enums.PipelineRunRunning).
		Updates(map[string]any{
			"status":      enums.PipelineRunSucceeded,
			"finished_at": time.Now(),
		}).Error
}

// FinishFailed moves the run to its terminal failure state, keeping the
// reason so a failed generation is distinguishable from one never attempted.
func (r *RunRepository) FinishFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.PipelineRun{}).
		Where("id = ? AND status IN ?", id, []enums.PipelineRunStatus{enums.PipelineRunPending, enums.PipelineRunRunning}).
		Updates(map[string]any{
			"status":       enums.PipelineRunFailed,
			"error_reason": reason,
			"finished_at":  time.Now(),
		}).Error
}

// FindStale returns active runs whose last sign of life is older than the
// cutoff. Running runs are judged by their heartbeat; pending runs never
// heartbeated, so they are judged by creation time. The requeue cron uses
// this to fail runs abandoned before or after a worker picked them up.
func (r *RunRepository) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]models.PipelineRun, error) {
	var runs []models.PipelineRun
	active := []enums.PipelineRunStatus{enums.PipelineRunPending, enums.PipelineRunRunning}
	err := r.db.WithContext(ctx).
		Where("status IN ? AND COALESCE(heartbeat_at, created_at) < ?", active, cutoff).
		Order("COALESCE(heartbeat_at, created_at) ASC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// ListByProduct returns a product's runs newest first.
func (r *RunRepository) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]models.PipelineRun, error) {
	var runs []models.PipelineRun
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
