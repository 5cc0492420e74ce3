package supplier

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	pkgerrors "github.com/threadline-ai/threadline-backend/pkg/errors"
)

// SuppliersPerMaterial caps how many suppliers a product surfaces per
// material, matching the discovery stage's association cap.
const SuppliersPerMaterial = 3

// Service exposes supplier search and ranking operations.
type Service interface {
	Search(ctx context.Context, input SearchInput) ([]SupplierDTO, error)
	Get(ctx context.Context, supplierID uuid.UUID) (*SupplierDTO, error)
	ListForProduct(ctx context.Context, userID, productID uuid.UUID) ([]MaterialSuppliersDTO, error)
	Rank(ctx context.Context, input RankInput) ([]RankingDTO, error)
}

// SearchInput filters the supplier catalogue.
type SearchInput struct {
	Material  string
	Country   string
	City      string
	MinRating float64
	Limit     int
	Offset    int
}

// RankInput scores suppliers for one material at a given quantity.
type RankInput struct {
	MaterialName string
	Quantity     decimal.Decimal
	Unit         string
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type bomLoader interface {
	FindByProductID(ctx context.Context, productID uuid.UUID) (*models.BOM, error)
}

type service struct {
	repo     *Repository
	products productLoader
	boms     bomLoader
}

// NewService constructs a supplier service instance.
func NewService(repo *Repository, products productLoader, boms bomLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if boms == nil {
		return nil, fmt.Errorf("bom loader required")
	}
	return &service{repo: repo, products: products, boms: boms}, nil
}

// Search returns active suppliers matching the filters.
func (s *service) Search(ctx context.Context, input SearchInput) ([]SupplierDTO, error) {
	if input.MinRating < 0 || input.MinRating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_rating must be between 0 and 5")
	}

	rows, err := s.repo.Search(ctx, searchParams{
		Material:  input.Material,
		Country:   input.Country,
		City:      input.City,
		MinRating: input.MinRating,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search suppliers")
	}

	results := make([]SupplierDTO, 0, len(rows))
	for i := range rows {
		results = append(results, NewSupplierDTO(&rows[i]))
	}
	return results, nil
}

// Get loads one supplier with materials and certifications.
func (s *service) Get(ctx context.Context, supplierID uuid.UUID) (*SupplierDTO, error) {
	supplier, err := s.repo.FindByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	dto := NewSupplierDTO(supplier)
	return &dto, nil
}

// ListForProduct groups discovered suppliers under each BOM material,
// capped per material.
func (s *service) ListForProduct(ctx context.Context, userID, productID uuid.UUID) ([]MaterialSuppliersDTO, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to user")
	}

	bom, err := s.boms.FindByProductID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bom not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bom")
	}

	groups := make([]MaterialSuppliersDTO, 0, len(bom.Items))
	seen := make(map[string]struct{}, len(bom.Items))
	for _, item := range bom.Items {
		if _, ok := seen[item.Name]; ok {
			continue
		}
		seen[item.Name] = struct{}{}

		rows, err := s.repo.ListForMaterial(ctx, item.Name, SuppliersPerMaterial)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers for material")
		}
		group := MaterialSuppliersDTO{
			MaterialName: item.Name,
			Suppliers:    make([]SupplierDTO, 0, len(rows)),
		}
		for i := range rows {
			group.Suppliers = append(group.Suppliers, NewSupplierDTO(&rows[i]))
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// Rank scores suppliers carrying the material and returns them best first.
func (s *service) Rank(ctx context.Context, input RankInput) ([]RankingDTO, error) {
	if input.MaterialName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material_name is required")
	}
	if input.Quantity.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}

	rows, err := s.repo.ListForMaterial(ctx, input.MaterialName, 50)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load suppliers for ranking")
	}

	rankings := make([]RankingDTO, 0, len(rows))
	for i := range rows {
		rankings = append(rankings, scoreSupplier(&rows[i], input.Quantity))
	}
	sort.SliceStable(rankings, func(a, b int) bool {
		return rankings[a].Score > rankings[b].Score
	})
	return rankings, nil
}

// scoreSupplier weighs rating (30), reliability (25), price (25), and
// certifications (10). Rating is on a 0-5 scale, reliability a 0-1 fraction.
func scoreSupplier(supplier *models.Supplier, quantity decimal.Decimal) RankingDTO {
	var score float64
	reasons := make([]string, 0, 4)

	rating := decimalValue(supplier.Rating)
	score += rating * 6
	if rating >= 4.5 {
		reasons = append(reasons, "High rating")
	}

	reliability := decimalValue(supplier.Reliability)
	score += reliability * 25
	if reliability >= 0.95 {
		reasons = append(reasons, "High reliability")
	}

	dto := NewSupplierDTO(supplier)
	var estimated *string
	if len(supplier.Materials) > 0 {
		material := supplier.Materials[0]
		if material.UnitPrice != nil {
			price, _ := material.UnitPrice.Float64()
			if price < 25 {
				score += 25 - price
			}
			reasons = append(reasons, "Competitive pricing")

			total := material.UnitPrice.Mul(quantity).Round(2).String()
			estimated = &total
		}
	}

	certScore := float64(len(supplier.Certs)) * 2
	if certScore > 10 {
		certScore = 10
	}
	score += certScore
	if len(supplier.Certs) > 0 {
		reasons = append(reasons, fmt.Sprintf("%d certifications", len(supplier.Certs)))
	}

	return RankingDTO{
		Supplier:           dto,
		Score:              roundScore(score),
		Reasons:            reasons,
		EstimatedTotalCost: estimated,
	}
}

func decimalValue(value *decimal.Decimal) float64 {
	if value == nil {
		return 0
	}
	f, _ := value.Float64()
	return f
}

func roundScore(score float64) float64 {
	rounded, _ := decimal.NewFromFloat(score).Round(2).Float64()
	return rounded
}
