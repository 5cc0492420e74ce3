package forecast

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	pkgerrors "github.com/threadline-ai/threadline-backend/pkg/errors"
	"github.com/threadline-ai/threadline-backend/pkg/inference"
)

type fakeProductLoader struct {
	rows map[uuid.UUID]*models.Product
}

func (f *fakeProductLoader) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if row, ok := f.rows[id]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func TestListForProductOwnership(t *testing.T) {
	ownerID := uuid.New()
	productID := uuid.New()
	loader := &fakeProductLoader{
		rows: map[uuid.UUID]*models.Product{
			productID: {ID: productID, UserID: ownerID},
		},
	}
	svc := &service{repo: NewRepository(nil), products: loader}

	t.Run("unknownProduct", func(t *testing.T) {
		_, err := svc.ListForProduct(context.Background(), ownerID, uuid.New())
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("foreignProduct", func(t *testing.T) {
		_, err := svc.ListForProduct(context.Background(), uuid.New(), productID)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}

type fakePricer struct {
	lastReq inference.PriceForecastRequest
	result  *inference.PriceForecastResult
	err     error
}

func (f *fakePricer) GeneratePriceForecast(_ context.Context, req inference.PriceForecastRequest) (*inference.PriceForecastResult, error) {
	f.lastReq = req
	return f.result, f.err
}

func TestPriceForecast(t *testing.T) {
	pricer := &fakePricer{
		result: &inference.PriceForecastResult{
			Forecasts: []inference.PricePoint{
				{Week: 1, Price: 4.2},
				{Week: 2, Price: 4.35},
			},
		},
	}
	svc := &service{repo: NewRepository(nil), products: &fakeProductLoader{}, pricer: pricer}

	dto, err := svc.PriceForecast(context.Background(), PriceForecastInput{
		MaterialName: "  organic cotton  ",
		Unit:         "kg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pricer.lastReq.MaterialName != "organic cotton" {
		t.Fatalf("expected trimmed material name, got %q", pricer.lastReq.MaterialName)
	}
	if pricer.lastReq.Weeks != defaultPriceWeeks {
		t.Fatalf("expected default weeks %d, got %d", defaultPriceWeeks, pricer.lastReq.Weeks)
	}
	if len(dto.Points) != 2 || dto.Points[1].Price != 4.35 {
		t.Fatalf("unexpected points %+v", dto.Points)
	}
	if dto.MaterialName != "organic cotton" || dto.Unit != "kg" {
		t.Fatalf("unexpected dto %+v", dto)
	}
}

func TestPriceForecastValidation(t *testing.T) {
	svc := &service{repo: NewRepository(nil), products: &fakeProductLoader{}, pricer: &fakePricer{}}

	_, err := svc.PriceForecast(context.Background(), PriceForecastInput{MaterialName: "   "})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPriceForecastCapsWeeks(t *testing.T) {
	pricer := &fakePricer{result: &inference.PriceForecastResult{}}
	svc := &service{repo: NewRepository(nil), products: &fakeProductLoader{}, pricer: pricer}

	if _, err := svc.PriceForecast(context.Background(), PriceForecastInput{MaterialName: "wool", Weeks: 500}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pricer.lastReq.Weeks != maxPriceWeeks {
		t.Fatalf("expected weeks capped at %d, got %d", maxPriceWeeks, pricer.lastReq.Weeks)
	}
}

func TestNewForecastDTO(t *testing.T) {
	city := "Berlin"
	size := "4.2B"
	price := decimal.RequireFromString("32.50")
	growth := 12.5
	row := &models.MarketDemandForecast{
		ID:            uuid.New(),
		Country:       "Germany",
		City:          &city,
		DemandScore:   82,
		Competition:   40,
		PriceScore:    70,
		GrowthScore:   65,
		MarketSize:    &size,
		AvgPrice:      &price,
		GrowthPercent: &growth,
	}

	dto := newForecastDTO(row)
	if dto.Country != "Germany" || dto.DemandScore != 82 {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if dto.AvgPrice == nil || *dto.AvgPrice != "32.5" {
		t.Fatalf("expected avg price 32.5, got %v", dto.AvgPrice)
	}
	if dto.GrowthPercent == nil || *dto.GrowthPercent != 12.5 {
		t.Fatalf("expected growth 12.5, got %v", dto.GrowthPercent)
	}
}
