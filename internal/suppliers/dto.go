package supplier

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

// SupplierDTO is the API shape of a supplier.
type SupplierDTO struct {
	ID             uuid.UUID                 `json:"id"`
	Name           string                    `json:"name"`
	Country        string                    `json:"country"`
	City           *string                   `json:"city,omitempty"`
	Longitude      *float64                  `json:"longitude,omitempty"`
	Latitude       *float64                  `json:"latitude,omitempty"`
	Status         enums.SupplierStatus      `json:"status"`
	Rating         *float64                  `json:"rating,omitempty"`
	Reliability    *float64                  `json:"reliability,omitempty"`
	Website        *string                   `json:"website,omitempty"`
	ContactEmail   *string                   `json:"contactEmail,omitempty"`
	Materials      []MaterialDTO             `json:"materials"`
	Certifications []enums.CertificationType `json:"certifications"`
	CreatedAt      time.Time                 `json:"createdAt"`
}

// MaterialDTO is the API shape of one supplier-material association.
type MaterialDTO struct {
	ID           uuid.UUID `json:"id"`
	MaterialName string    `json:"materialName"`
	UnitPrice    *string   `json:"unitPrice,omitempty"`
	Unit         string    `json:"unit"`
	MOQ          *int      `json:"moq,omitempty"`
	LeadTimeDays *int      `json:"leadTimeDays,omitempty"`
}

// RankingDTO is one scored entry in a rank-by-material response.
type RankingDTO struct {
	Supplier           SupplierDTO `json:"supplier"`
	Score              float64     `json:"score"`
	Reasons            []string    `json:"reasons"`
	EstimatedTotalCost *string     `json:"estimatedTotalCost,omitempty"`
}

// MaterialSuppliersDTO groups discovered suppliers under a BOM material.
type MaterialSuppliersDTO struct {
	MaterialName string        `json:"materialName"`
	Suppliers    []SupplierDTO `json:"suppliers"`
}

// NewSupplierDTO maps a model row (with preloads) to the API shape.
func NewSupplierDTO(supplier *models.Supplier) SupplierDTO {
	dto := SupplierDTO{
		ID:             supplier.ID,
		Name:           supplier.Name,
		Country:        supplier.Country,
		City:           supplier.City,
		Longitude:      supplier.Longitude,
		Latitude:       supplier.Latitude,
		Status:         supplier.Status,
		Rating:         decimalPtrFloat(supplier.Rating),
		Reliability:    decimalPtrFloat(supplier.Reliability),
		Website:        supplier.Website,
		ContactEmail:   supplier.ContactEmail,
		Materials:      make([]MaterialDTO, 0, len(supplier.Materials)),
		Certifications: make([]enums.CertificationType, 0, len(supplier.Certs)),
		CreatedAt:      supplier.CreatedAt,
	}
	for _, material := range supplier.Materials {
		dto.Materials = append(dto.Materials, MaterialDTO{
			ID:           material.ID,
			MaterialName: material.MaterialName,
			UnitPrice:    decimalPtrString(material.UnitPrice),
			Unit:         material.Unit,
			MOQ:          material.MOQ,
			LeadTimeDays: material.LeadTimeDays,
		})
	}
	for _, cert := range supplier.Certs {
		dto.Certifications = append(dto.Certifications, cert.Certification)
	}
	return dto
}

func decimalPtrString(value *decimal.Decimal) *string {
	if value == nil {
		return nil
	}
	s := value.String()
	return &s
}

func decimalPtrFloat(value *decimal.Decimal) *float64 {
	if value == nil {
		return nil
	}
	f, _ := value.Float64()
	return &f
}
