package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

// Supplier is deduplicated on (name, country). The pair carries a unique
// index so concurrent discovery runs cannot double-insert; writers must be
// prepared for a unique violation and fall back to the existing row.
type Supplier struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string                  `gorm:"column:name;not null;index:idx_suppliers_name_country,unique"`
	Country      string                  `gorm:"column:country;not null;index:idx_suppliers_name_country,unique"`
	City         *string                 `gorm:"column:city"`
	Longitude    *float64                `gorm:"column:longitude;type:numeric(9,6)"`
	Latitude     *float64                `gorm:"column:latitude;type:numeric(9,6)"`
	Status       enums.SupplierStatus    `gorm:"column:status;type:supplier_status;not null;default:'pending_verification'"`
	Rating       *decimal.Decimal        `gorm:"column:rating;type:numeric(3,2)"`
	Reliability  *decimal.Decimal        `gorm:"column:reliability;type:numeric(3,2)"`
	Website      *string                 `gorm:"column:website"`
	ContactEmail *string                 `gorm:"column:contact_email"`
	Materials    []SupplierMaterial      `gorm:"foreignKey:SupplierID;constraint:OnDelete:CASCADE"`
	Certs        []SupplierCertification `gorm:"foreignKey:SupplierID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
