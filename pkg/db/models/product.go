package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

// Product is the unit of work the enrichment pipeline operates on. Status is
// the only coordination signal visible to API clients while a run is in
// flight.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Name        string              `gorm:"column:name;not null"`
	Description *string             `gorm:"column:description;type:text"`
	Category    *string             `gorm:"column:category"`
	Status      enums.ProductStatus `gorm:"column:status;type:product_status;not null;default:'draft'"`
	Assets      []ProductAsset      `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	BOM         *BOM                `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
