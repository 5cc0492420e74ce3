package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BOMVersion is an immutable snapshot of a BOM at a given version. Rows are
// append-only; nothing updates or deletes them.
type BOMVersion struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BOMID      uuid.UUID       `gorm:"column:bom_id;type:uuid;not null;index:idx_bom_versions_bom_version,unique"`
	Version    int             `gorm:"column:version;not null;index:idx_bom_versions_bom_version,unique"`
	Data       json.RawMessage `gorm:"column:data;type:jsonb;not null"`
	ChangeNote *string         `gorm:"column:change_note"`
	CreatedBy  *uuid.UUID      `gorm:"column:created_by;type:uuid"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
