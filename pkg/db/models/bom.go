package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

// BOM is the bill of materials generated for a product. Edits never mutate
// history: each change increments Version and appends a BOMVersion snapshot.
type BOM struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID        `gorm:"column:product_id;type:uuid;not null;uniqueIndex"`
	Status      enums.BOMStatus  `gorm:"column:status;type:bom_status;not null;default:'draft'"`
	Confidence  float64          `gorm:"column:confidence;type:numeric(4,3);not null;default:0"`
	TotalCost   *decimal.Decimal `gorm:"column:total_cost;type:numeric(12,2)"`
	Currency    string           `gorm:"column:currency;not null;default:'USD'"`
	YieldBuffer float64          `gorm:"column:yield_buffer;type:numeric(5,2);not null;default:10"`
	Version     int              `gorm:"column:version;not null;default:1"`
	LockedAt    *time.Time       `gorm:"column:locked_at"`
	VerifiedBy  *uuid.UUID       `gorm:"column:verified_by;type:uuid"`
	Items       []BOMItem        `gorm:"foreignKey:BOMID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
