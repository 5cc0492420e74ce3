package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductAsset is an uploaded design image. Rows are written by the upload
// surface and read by the BOM generation stage as model input.
type ProductAsset struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Bucket      string    `gorm:"column:bucket;not null"`
	ObjectKey   string    `gorm:"column:object_key;not null"`
	URL         string    `gorm:"column:url;not null"`
	ContentType string    `gorm:"column:content_type;not null"`
	SizeBytes   int64     `gorm:"column:size_bytes;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
