package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierMaterial links a supplier to a material name it can provide.
// Associations are per discovery run and intentionally not deduplicated.
type SupplierMaterial struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID   uuid.UUID        `gorm:"column:supplier_id;type:uuid;not null;index"`
	MaterialName string           `gorm:"column:material_name;not null;index"`
	UnitPrice    *decimal.Decimal `gorm:"column:unit_price;type:numeric(12,4)"`
	Unit         string           `gorm:"column:unit;not null;default:''"`
	MOQ          *int             `gorm:"column:moq"`
	LeadTimeDays *int             `gorm:"column:lead_time_days"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
}
