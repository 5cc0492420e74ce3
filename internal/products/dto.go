package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

// ProductDTO is the API shape of a product.
type ProductDTO struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Description *string             `json:"description,omitempty"`
	Category    *string             `json:"category,omitempty"`
	Status      enums.ProductStatus `json:"status"`
	Assets      []AssetDTO          `json:"assets"`
	BOMID       *uuid.UUID          `json:"bomId,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// AssetDTO is the API shape of an uploaded product image.
type AssetDTO struct {
	ID          uuid.UUID `json:"id"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ListResult wraps a page of products and the cursor for the next page.
type ListResult struct {
	Products []ProductDTO `json:"products"`
	Cursor   string       `json:"cursor"`
}

// NewProductDTO maps a model row (with preloaded assets) to the API shape.
func NewProductDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Category:    product.Category,
		Status:      product.Status,
		Assets:      make([]AssetDTO, 0, len(product.Assets)),
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	if product.BOM != nil {
		id := product.BOM.ID
		dto.BOMID = &id
	}
	for _, asset := range product.Assets {
		dto.Assets = append(dto.Assets, AssetDTO{
			ID:          asset.ID,
			URL:         asset.URL,
			ContentType: asset.ContentType,
			SizeBytes:   asset.SizeBytes,
			CreatedAt:   asset.CreatedAt,
		})
	}
	return dto
}
