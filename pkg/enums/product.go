package enums

import "fmt"

// ProductStatus maps to the product_status enum in Postgres. It is the only
// coordination signal the enrichment pipeline exposes to clients.
type ProductStatus string

const (
	ProductStatusDraft        ProductStatus = "draft"
	ProductStatusProcessing   ProductStatus = "processing"
	ProductStatusBOMGenerated ProductStatus = "bom_generated"
	ProductStatusSourcing     ProductStatus = "sourcing"
	ProductStatusReady        ProductStatus = "ready"
	ProductStatusArchived     ProductStatus = "archived"
)

var validProductStatuses = []ProductStatus{
	ProductStatusDraft,
	ProductStatusProcessing,
	ProductStatusBOMGenerated,
	ProductStatusSourcing,
	ProductStatusReady,
	ProductStatusArchived,
}

// String implements fmt.Stringer.
func (s ProductStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductStatus.
func (s ProductStatus) IsValid() bool {
	for _, candidate := range validProductStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProductStatus converts raw input into a ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	for _, candidate := range validProductStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product status %q", value)
}

// pipelineTransitions captures the edges the orchestrator is allowed to drive.
// Archiving is a user action handled outside the pipeline.
var pipelineTransitions = map[ProductStatus][]ProductStatus{
	ProductStatusDraft:        {ProductStatusProcessing},
	ProductStatusProcessing:   {ProductStatusBOMGenerated, ProductStatusDraft},
	ProductStatusBOMGenerated: {ProductStatusSourcing},
	ProductStatusSourcing:     {ProductStatusReady},
}

// CanTransitionTo reports whether the orchestrator may move a product from s to next.
func (s ProductStatus) CanTransitionTo(next ProductStatus) bool {
	for _, candidate := range pipelineTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}
