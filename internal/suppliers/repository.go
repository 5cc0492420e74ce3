package supplier

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

// Repository wires together supplier persistence helpers.
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

// FindByID loads a supplier with materials and certifications.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.db.WithContext(ctx).
		Preload("Materials").
		Preload("Certs").
		First(&supplier, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

// FindByNameCountry resolves the natural key used for dedup across runs.
func (r *Repository) FindByNameCountry(ctx context.Context, name, country string) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.db.WithContext(ctx).
		First(&supplier, "name = ? AND country = ?", name, country).
		Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

// Create inserts a supplier row together with any nested certifications.
func (r *Repository) Create(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error) {
	if err := r.db.WithContext(ctx).Create(supplier).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

// AddMaterial records a supplier-material association. Rows are per
// discovery run and intentionally not deduplicated.
func (r *Repository) AddMaterial(ctx context.Context, material *models.SupplierMaterial) error {
	return r.db.WithContext(ctx).Create(material).Error
}

// CountSuppliersForMaterial returns how many distinct suppliers carry an
// association for the given material name.
func (r *Repository) CountSuppliersForMaterial(ctx context.Context, materialName string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SupplierMaterial{}).
		Where("material_name = ?", materialName).
		Distinct("supplier_id").
		Count(&count).
		Error
	return count, err
}

type searchParams struct {
	Material  string
	Country   string
	City      string
	MinRating float64
	Limit     int
	Offset    int
}

// Search filters active suppliers ordered by rating then reliability.
func (r *Repository) Search(ctx context.Context, params searchParams) ([]models.Supplier, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Preload("Materials").
		Preload("Certs").
		Where("status = ?", enums.SupplierStatusActive)

	if params.Country != "" {
		query = query.Where("country = ?", params.Country)
	}
	if params.City != "" {
		query = query.Where("city = ?", params.City)
	}
	if params.MinRating > 0 {
		query = query.Where("rating >= ?", params.MinRating)
	}
	if material := strings.TrimSpace(params.Material); material != "" {
		pattern := "%" + strings.ToLower(material) + "%"
		query = query.Where(
			"id IN (SELECT supplier_id FROM supplier_materials WHERE LOWER(material_name) LIKE ?)",
			pattern,
		)
	}

	var rows []models.Supplier
	err := query.
		Order("rating DESC NULLS LAST").
		Order("reliability DESC NULLS LAST").
		Limit(limit).
		Offset(params.Offset).
		Find(&rows).
		Error
	return rows, err
}

// ListForMaterial returns active suppliers carrying the material, best rated
// first, capped at limit.
func (r *Repository) ListForMaterial(ctx context.Context, materialName string, limit int) ([]models.Supplier, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(materialName)) + "%"
	var rows []models.Supplier
	err := r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Preload("Materials", func(db *gorm.DB) *gorm.DB {
			return db.Where("LOWER(material_name) LIKE ?", pattern)
		}).
		Preload("Certs").
		Where("status = ?", enums.SupplierStatusActive).
		Where("id IN (SELECT supplier_id FROM supplier_materials WHERE LOWER(material_name) LIKE ?)", pattern).
		Order("rating DESC NULLS LAST").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}
