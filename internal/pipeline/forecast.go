package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
	"github.com/threadline-ai/threadline-backend/pkg/inference"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
	"github.com/threadline-ai/threadline-backend/pkg/outbox"
	"github.com/threadline-ai/threadline-backend/pkg/outbox/payloads"
)

// runForecast executes Stage 2a. The material names are context for the
// model only; the target markets are wherever the finished product can sell.
// Rows persist independently so one malformed row never sinks the batch, and
// this workflow never touches product status.
func (s *service) runForecast(ctx context.Context, run *models.PipelineRun, prod *models.Product, generated *models.BOM, materials []materialLine) error {
	req := inference.ForecastRequest{
		ProductName:  prod.Name,
		BOMMaterials: materialNames(materials),
	}
	if prod.Description != nil {
		req.ProductDescription = *prod.Description
	}
	result, err := s.inference.GenerateMarketForecast(ctx, req)
	if err != nil {
		return err
	}

	stored := storeForecastRows(ctx, s.logg, s.forecasts, prod.ID, generated.ID, result.Forecasts)
	s.logg.Info(s.logg.WithField(ctx, "markets", stored), "market forecast stored")

	if err := s.runs.MarkForecastDone(ctx, run.ID); err != nil {
		s.logg.Error(ctx, "marking forecast done", err)
	}
	if stored == 0 {
		return nil
	}

	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventForecastReady,
			AggregateType: enums.AggregateForecast,
			AggregateID:   prod.ID,
			Actor:         &outbox.ActorRef{UserID: prod.UserID, Role: "pipeline"},
			Data: payloads.ForecastReadyEvent{
				ProductID:   prod.ID,
				ProductName: prod.Name,
				OwnerID:     prod.UserID,
				Markets:     stored,
			},
			Version: 1,
		})
	})
}

type forecastStore interface {
	Create(ctx context.Context, forecast *models.MarketDemandForecast) error
}

// storeForecastRows persists each market independently and returns the count
// stored; one malformed row never sinks the batch.
func storeForecastRows(ctx context.Context, logg *logger.Logger, store forecastStore, productID, bomID uuid.UUID, markets []inference.ForecastMarket) int {
	stored := 0
	var rowErrs error
	for _, market := range markets {
		row := buildForecastRow(productID, bomID, market)
		if err := store.Create(ctx, row); err != nil {
			rowErrs = multierr.Append(rowErrs, fmt.Errorf("market %s: %w", market.Country, err))
			continue
		}
		stored++
	}
	if rowErrs != nil {
		logg.Error(logg.WithField(ctx, "failed_rows", len(multierr.Errors(rowErrs))), "storing market forecast rows", rowErrs)
	}
	return stored
}

func materialNames(materials []materialLine) []string {
	names := make([]string, 0, len(materials))
	for _, line := range materials {
		names = append(names, line.Name)
	}
	return names
}

// buildForecastRow maps one collaborator market onto the persisted shape.
// Descriptive strings are optional and kept verbatim; the numeric extras are
// parsed leniently because the model formats them inconsistently.
func buildForecastRow(productID, bomID uuid.UUID, market inference.ForecastMarket) *models.MarketDemandForecast {
	row := &models.MarketDemandForecast{
		ProductID:   productID,
		BOMID:       &bomID,
		Country:     market.Country,
		DemandScore: market.Demand,
		Competition: market.Competition,
		PriceScore:  market.Price,
		GrowthScore: market.Growth,
	}
	if city := strings.TrimSpace(market.City); city != "" {
		row.City = &city
	}
	if size := strings.TrimSpace(market.MarketSize); size != "" {
		row.MarketSize = &size
	}
	if trend := strings.TrimSpace(market.Trend); trend != "" {
		row.Trend = &trend
	}
	if price, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(market.AvgPrice), "$")); err == nil && market.AvgPrice != "" {
		row.AvgPrice = &price
	}
	if raw := strings.TrimSuffix(strings.TrimSpace(market.GrowthPercent), "%"); raw != "" {
		if pct, err := strconv.ParseFloat(raw, 64); err == nil {
			row.GrowthPercent = &pct
		}
	}
	return row
}
