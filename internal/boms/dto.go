package bom

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

// BOMDTO is the API shape of a bill of materials.
type BOMDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	Status      enums.BOMStatus `json:"status"`
	Confidence  float64         `json:"confidence"`
	TotalCost   *string         `json:"totalCost,omitempty"`
	Currency    string          `json:"currency"`
	YieldBuffer float64         `json:"yieldBuffer"`
	Version     int             `json:"version"`
	LockedAt    *time.Time      `json:"lockedAt,omitempty"`
	Items       []ItemDTO       `json:"items"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ItemDTO is the API shape of a single material line.
type ItemDTO struct {
	ID             uuid.UUID          `json:"id"`
	Category       string             `json:"category"`
	Name           string             `json:"name"`
	MaterialType   enums.MaterialType `json:"materialType"`
	Quantity       string             `json:"quantity"`
	Unit           string             `json:"unit"`
	UnitCost       *string            `json:"unitCost,omitempty"`
	TotalCost      *string            `json:"totalCost,omitempty"`
	Specifications json.RawMessage    `json:"specifications,omitempty"`
	Source         *string            `json:"source,omitempty"`
}

// VersionDTO is the API shape of one snapshot.
type VersionDTO struct {
	ID         uuid.UUID       `json:"id"`
	Version    int             `json:"version"`
	Data       json.RawMessage `json:"data"`
	ChangeNote *string         `json:"changeNote,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// NewBOMDTO maps a model row (with preloaded items) to the API shape.
func NewBOMDTO(bom *models.BOM) *BOMDTO {
	dto := &BOMDTO{
		ID:          bom.ID,
		ProductID:   bom.ProductID,
		Status:      bom.Status,
		Confidence:  bom.Confidence,
		TotalCost:   decimalPtrString(bom.TotalCost),
		Currency:    bom.Currency,
		YieldBuffer: bom.YieldBuffer,
		Version:     bom.Version,
		LockedAt:    bom.LockedAt,
		Items:       make([]ItemDTO, 0, len(bom.Items)),
		CreatedAt:   bom.CreatedAt,
		UpdatedAt:   bom.UpdatedAt,
	}
	for _, item := range bom.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ID:             item.ID,
			Category:       item.Category,
			Name:           item.Name,
			MaterialType:   item.MaterialType,
			Quantity:       item.Quantity.String(),
			Unit:           item.Unit,
			UnitCost:       decimalPtrString(item.UnitCost),
			TotalCost:      decimalPtrString(item.TotalCost),
			Specifications: item.Specifications,
			Source:         item.Source,
		})
	}
	return dto
}

// NewVersionDTO maps a snapshot row to the API shape.
func NewVersionDTO(version *models.BOMVersion) VersionDTO {
	return VersionDTO{
		ID:         version.ID,
		Version:    version.Version,
		Data:       version.Data,
		ChangeNote: version.ChangeNote,
		CreatedAt:  version.CreatedAt,
	}
}

func decimalPtrString(value *decimal.Decimal) *string {
	if value == nil {
		return nil
	}
	s := value.String()
	return &s
}
