package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

// BOMItem is a single material line on a BOM. TotalCost is reconciled by the
// generation stage so that unit cost times quantity holds within one cent.
type BOMItem struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BOMID          uuid.UUID          `gorm:"column:bom_id;type:uuid;not null;index"`
	Category       string             `gorm:"column:category;not null"`
	Name           string             `gorm:"column:name;not null"`
	MaterialType   enums.MaterialType `gorm:"column:material_type;type:material_type;not null"`
	Quantity       decimal.Decimal    `gorm:"column:quantity;type:numeric(12,4);not null"`
	Unit           string             `gorm:"column:unit;not null"`
	UnitCost       *decimal.Decimal   `gorm:"column:unit_cost;type:numeric(12,4)"`
	TotalCost      *decimal.Decimal   `gorm:"column:total_cost;type:numeric(12,2)"`
	Specifications json.RawMessage    `gorm:"column:specifications;type:jsonb"`
	Source         *string            `gorm:"column:source"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
