package forecast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	pkgerrors "github.com/threadline-ai/threadline-backend/pkg/errors"
	"github.com/threadline-ai/threadline-backend/pkg/inference"
)

// Service exposes forecast read operations scoped to the product owner.
type Service interface {
	ListForProduct(ctx context.Context, userID, productID uuid.UUID) ([]ForecastDTO, error)
	PriceForecast(ctx context.Context, input PriceForecastInput) (*PriceForecastDTO, error)
}

const (
	defaultPriceWeeks = 12
	maxPriceWeeks     = 52
)

// PriceForecastInput describes the material to project prices for.
type PriceForecastInput struct {
	MaterialName string
	MaterialType string
	Unit         string
	Weeks        int
}

// PriceForecastDTO is the projected weekly price curve for one material.
type PriceForecastDTO struct {
	MaterialName string          `json:"materialName"`
	Unit         string          `json:"unit,omitempty"`
	Points       []PricePointDTO `json:"points"`
}

// PricePointDTO is one week of the projection.
type PricePointDTO struct {
	Week  int     `json:"week"`
	Price float64 `json:"price"`
}

// ForecastDTO is the API shape of one market forecast row.
type ForecastDTO struct {
	ID            uuid.UUID `json:"id"`
	Country       string    `json:"country"`
	City          *string   `json:"city,omitempty"`
	DemandScore   float64   `json:"demandScore"`
	Competition   float64   `json:"competition"`
	PriceScore    float64   `json:"priceScore"`
	GrowthScore   float64   `json:"growthScore"`
	MarketSize    *string   `json:"marketSize,omitempty"`
	AvgPrice      *string   `json:"avgPrice,omitempty"`
	GrowthPercent *float64  `json:"growthPercent,omitempty"`
	Trend         *string   `json:"trend,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type priceForecaster interface {
	GeneratePriceForecast(ctx context.Context, req inference.PriceForecastRequest) (*inference.PriceForecastResult, error)
}

type service struct {
	repo     *Repository
	products productLoader
	pricer   priceForecaster
}

// NewService constructs a forecast service instance.
func NewService(repo *Repository, products productLoader, pricer priceForecaster) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("forecast repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("price forecaster required")
	}
	return &service{repo: repo, products: products, pricer: pricer}, nil
}

// ListForProduct returns the product's market forecasts strongest first.
func (s *service) ListForProduct(ctx context.Context, userID, productID uuid.UUID) ([]ForecastDTO, error) {
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

	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list forecasts")
	}

	results := make([]ForecastDTO, 0, len(rows))
	for i := range rows {
		results = append(results, newForecastDTO(&rows[i]))
	}
	return results, nil
}

// PriceForecast projects weekly unit prices for a material via the
// inference collaborator. The call is synchronous and nothing is persisted.
func (s *service) PriceForecast(ctx context.Context, input PriceForecastInput) (*PriceForecastDTO, error) {
	name := strings.TrimSpace(input.MaterialName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material_name is required")
	}
	weeks := input.Weeks
	if weeks <= 0 {
		weeks = defaultPriceWeeks
	}
	if weeks > maxPriceWeeks {
		weeks = maxPriceWeeks
	}

	result, err := s.pricer.GeneratePriceForecast(ctx, inference.PriceForecastRequest{
		MaterialName: name,
		MaterialType: input.MaterialType,
		Unit:         input.Unit,
		Weeks:        weeks,
	})
	if err != nil {
		return nil, err
	}

	points := make([]PricePointDTO, 0, len(result.Forecasts))
	for _, point := range result.Forecasts {
		points = append(points, PricePointDTO{Week: point.Week, Price: point.Price})
	}
	return &PriceForecastDTO{MaterialName: name, Unit: input.Unit, Points: points}, nil
}

func newForecastDTO(row *models.MarketDemandForecast) ForecastDTO {
	return ForecastDTO{
		ID:            row.ID,
		Country:       row.Country,
		City:          row.City,
		DemandScore:   row.DemandScore,
		Competition:   row.Competition,
		PriceScore:    row.PriceScore,
		GrowthScore:   row.GrowthScore,
		MarketSize:    row.MarketSize,
		AvgPrice:      decimalPtrString(row.AvgPrice),
		GrowthPercent: row.GrowthPercent,
		Trend:         row.Trend,
		CreatedAt:     row.CreatedAt,
	}
}

func decimalPtrString(value *decimal.Decimal) *string {
	if value == nil {
		return nil
	}
	s := value.String()
	return &s
}
