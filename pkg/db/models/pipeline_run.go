package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

// PipelineRun is the durable job record for one enrichment pipeline
// execution. A partial unique index on product_id (where status in
// pending/running) plus a redis lease keeps at most one run in flight per
// product. Stage columns let a requeue job distinguish a crash mid-run from a
// slow collaborator.
type PipelineRun struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID      uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	BOMID          *uuid.UUID              `gorm:"column:bom_id;type:uuid"`
	Status         enums.PipelineRunStatus `gorm:"column:status;type:pipeline_run_status;not null;default:'pending'"`
	YieldBuffer    float64                 `gorm:"column:yield_buffer;type:numeric(5,2);not null;default:10"`
	GenerationDone bool                    `gorm:"column:generation_done;not null;default:false"`
	ForecastDone   bool                    `gorm:"column:forecast_done;not null;default:false"`
	SourcingDone   bool                    `gorm:"column:sourcing_done;not null;default:false"`
	SuppliersFound int                     `gorm:"column:suppliers_found;not null;default:0"`
	ErrorReason    *string                 `gorm:"column:error_reason"`
	WorkerID       *string                 `gorm:"column:worker_id"`
	StartedAt      *time.Time              `gorm:"column:started_at"`
	HeartbeatAt    *time.Time              `gorm:"column:heartbeat_at"`
	FinishedAt     *time.Time              `gorm:"column:finished_at"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
