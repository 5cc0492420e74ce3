package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/inference"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
)

type fakeForecastStore struct {
	rows    []models.MarketDemandForecast
	failFor map[string]error
}

func (f *fakeForecastStore) Create(_ context.Context, row *models.MarketDemandForecast) error {
	if err, ok := f.failFor[row.Country]; ok {
		return err
	}
	f.rows = append(f.rows, *row)
	return nil
}

func TestStoreForecastRowsIsolatesBadRows(t *testing.T) {
	store := &fakeForecastStore{
		failFor: map[string]error{"DE": errors.New("value out of range")},
	}
	markets := []inference.ForecastMarket{
		{Country: "US", Demand: 0.9, Competition: 0.4, Price: 0.7, Growth: 0.6},
		{Country: "DE", Demand: 0.8, Competition: 0.5, Price: 0.6, Growth: 0.5},
		{Country: "JP", Demand: 0.7, Competition: 0.6, Price: 0.8, Growth: 0.4},
	}
	logg := logger.New(logger.Options{ServiceName: "test"})

	stored := storeForecastRows(context.Background(), logg, store, uuid.New(), uuid.New(), markets)
	if stored != 2 {
		t.Fatalf("expected 2 stored rows, got %d", stored)
	}
	if len(store.rows) != 2 {
		t.Fatalf("expected 2 persisted rows, got %d", len(store.rows))
	}
	for _, row := range store.rows {
		if row.Country == "DE" {
			t.Fatal("failed market must not be persisted")
		}
	}
}

func TestStoreForecastRowsAllFailing(t *testing.T) {
	store := &fakeForecastStore{
		failFor: map[string]error{"US": errors.New("boom"), "DE": errors.New("boom")},
	}
	markets := []inference.ForecastMarket{
		{Country: "US", Demand: 0.9},
		{Country: "DE", Demand: 0.8},
	}
	logg := logger.New(logger.Options{ServiceName: "test"})

	if stored := storeForecastRows(context.Background(), logg, store, uuid.New(), uuid.New(), markets); stored != 0 {
		t.Fatalf("expected 0 stored rows, got %d", stored)
	}
}
