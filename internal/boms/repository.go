package bom

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
)

// Repository wires together BOM persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByProductID loads the BOM with items, ordered as generated.
func (r *Repository) FindByProductID(ctx context.Context, productID uuid.UUID) (*models.BOM, error) {
	var bom models.BOM
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("category ASC, name ASC")
		}).
		First(&bom, "product_id = ?", productID).
		Error
	if err != nil {
		return nil, err
	}
	return &bom, nil
}

// FindByID loads the BOM with items by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BOM, error) {
	var bom models.BOM
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("category ASC, name ASC")
		}).
		First(&bom, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &bom, nil
}

// Create inserts the BOM row together with its items.
func (r *Repository) Create(ctx context.Context, bom *models.BOM) (*models.BOM, error) {
	if err := r.db.WithContext(ctx).Create(bom).Error; err != nil {
		return nil, err
	}
	return bom, nil
}

// Save persists scalar columns on the BOM row. Items are managed separately.
func (r *Repository) Save(ctx context.Context, bom *models.BOM) error {
	return r.db.WithContext(ctx).Omit("Items").Save(bom).Error
}

// ReplaceItems removes all items for the BOM and inserts the given set.
func (r *Repository) ReplaceItems(ctx context.Context, bomID uuid.UUID, items []models.BOMItem) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("bom_id = ?", bomID).Delete(&models.BOMItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return tx.Create(&items).Error
}

// AppendVersion inserts an immutable snapshot row.
func (r *Repository) AppendVersion(ctx context.Context, version *models.BOMVersion) error {
	return r.db.WithContext(ctx).Create(version).Error
}

// ListVersions returns snapshots for the BOM newest first.
func (r *Repository) ListVersions(ctx context.Context, bomID uuid.UUID) ([]models.BOMVersion, error) {
	var rows []models.BOMVersion
	err := r.db.WithContext(ctx).
		Where("bom_id = ?", bomID).
		Order("version DESC").
		Find(&rows).
		Error
	return rows, err
}
