package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

// SupplierCertification is written only when a supplier is first discovered.
type SupplierCertification struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID    uuid.UUID               `gorm:"column:supplier_id;type:uuid;not null;index:idx_supplier_certs,unique"`
	Certification enums.CertificationType `gorm:"column:certification;type:certification_type;not null;index:idx_supplier_certs,unique"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
}
