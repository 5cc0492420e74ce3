package forecast

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/internal/repo"
	"github.com/threadline-ai/threadline-backend/pkg/db/models"
)

// Repository wires together forecast persistence helpers.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(tx)}
}

// Create inserts one forecast row. The forecast stage calls this per row so
// a bad market does not sink its siblings.
func (r *Repository) Create(ctx context.Context, forecast *models.MarketDemandForecast) error {
	return r.DB(ctx).Create(forecast).Error
}

// ListByProduct returns forecasts for the product, strongest demand first.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.MarketDemandForecast, error) {
	var rows []models.MarketDemandForecast
	err := r.DB(ctx).
		Where("product_id = ?", productID).
		Order("demand_score DESC, country ASC").
		Find(&rows).
		Error
	return rows, err
}

// DeleteByProduct clears previous forecasts so a re-run replaces the set.
func (r *Repository) DeleteByProduct(ctx context.Context, productID uuid.UUID) error {
	return r.DB(ctx).
		Where("product_id = ?", productID).
		Delete(&models.MarketDemandForecast{}).
		Error
}
