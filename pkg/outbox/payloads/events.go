package payloads

import (
	"github.com/google/uuid"

	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

// ProductStatusChangedEvent records each orchestrator-driven status edge.
type ProductStatusChangedEvent struct {
	ProductID uuid.UUID           `json:"product_id"`
	From      enums.ProductStatus `json:"from"`
	To        enums.ProductStatus `json:"to"`
	RunID     uuid.UUID           `json:"run_id"`
}

// BOMGeneratedEvent is emitted when the generation stage persists a new BOM.
type BOMGeneratedEvent struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	OwnerID     uuid.UUID `json:"owner_id"`
	BOMID       uuid.UUID `json:"bom_id"`
	ItemCount   int       `json:"item_count"`
	Confidence  float64   `json:"confidence"`
}

// BOMVersionCreatedEvent is appended on every BOM edit snapshot.
type BOMVersionCreatedEvent struct {
	BOMID     uuid.UUID `json:"bom_id"`
	ProductID uuid.UUID `json:"product_id"`
	Version   int       `json:"version"`
}

// SuppliersDiscoveredEvent reports completed supplier discovery for a run.
type SuppliersDiscoveredEvent struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name"`
	OwnerID      uuid.UUID `json:"owner_id"`
	RunID        uuid.UUID `json:"run_id"`
	Associations int       `json:"associations"`
}

// ForecastReadyEvent reports persisted market demand forecasts.
type ForecastReadyEvent struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Markets     int       `json:"markets"`
}
