package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

const heartbeatInterval = 30 * time.Second

// materialLine is the read-only tuple both Stage 2 workflows consume. It is
// extracted once from the freshly created BOM items so neither workflow
// touches BOM tables again.
type materialLine struct {
	Name      string
	Type      enums.MaterialType
	Quantity  decimal.Decimal
	Unit      string
	UnitCost  *decimal.Decimal
	TotalCost *decimal.Decimal
}

// executeRun is the asynchronous pipeline body. It owns the run row and the
// product lease for its whole lifetime.
func (s *service) executeRun(ctx context.Context, runID, productID uuid.UUID, leaseToken string) {
	ctx = s.logg.WithStage(s.logg.WithRunID(s.logg.WithProductID(ctx, productID.String()), runID.String()), "pipeline")
	defer s.lease.Release(ctx, productID, leaseToken)

	if err := s.runs.MarkRunning(ctx, runID, s.workerID); err != nil {
		s.logg.Error(ctx, "marking run as running", err)
		s.rollbackGeneration(ctx, runID, productID, err)
		return
	}
	stopHeartbeat := s.startHeartbeat(ctx, runID)
	defer stopHeartbeat()

	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		s.logg.Error(ctx, "loading pipeline run", err)
		return
	}
	prod, err := s.products.FindByID(ctx, productID)
	if err != nil {
		s.rollbackGeneration(ctx, runID, productID, err)
		return
	}
	assets, err := s.products.ListAssets(ctx, productID)
	if err != nil {
		s.rollbackGeneration(ctx, runID, productID, err)
		return
	}

	started := time.Now()
	generated, items, err := s.runGeneration(ctx, run, prod, assets)
	if err != nil {
		s.stats.ObserveStage(enums.StageBOMGeneration.String(), time.Since(started), "failure")
		s.rollbackGeneration(ctx, runID, productID, err)
		return
	}
	s.stats.ObserveStage(enums.StageBOMGeneration.String(), time.Since(started), "success")
	s.logg.Info(s.logg.WithField(ctx, "items", len(items)), "bom generated")

	materials := extractMaterials(items)
	s.fanOut(ctx, run, prod, generated, materials)

	if err := s.runs.FinishSucceeded(ctx, runID); err != nil {
		s.logg.Error(ctx, "finishing pipeline run", err)
	}
	s.logg.Info(ctx, "pipeline run finished")
}

// fanOut runs the two Stage 2 workflows concurrently. They share the
// read-only material list and write to disjoint tables; a failure in one
// never aborts the other, so both closures always return nil.
func (s *service) fanOut(ctx context.Context, run *models.PipelineRun, prod *models.Product, generated *models.BOM, materials []materialLine) {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		started := time.Now()
		forecastCtx := s.logg.WithStage(groupCtx, enums.StageMarketForecast.String())
		if err := s.runForecast(forecastCtx, run, prod, generated, materials); err != nil {
			s.stats.ObserveStage(enums.StageMarketForecast.String(), time.Since(started), "failure")
			s.logg.Error(forecastCtx, "market forecast workflow failed", err)
			return nil
		}
		s.stats.ObserveStage(enums.StageMarketForecast.String(), time.Since(started), "success")
		return nil
	})

	group.Go(func() error {
		started := time.Now()
		sourcingCtx := s.logg.WithStage(groupCtx, enums.StageSupplierDiscovery.String())
		if err := s.runDiscovery(sourcingCtx, run, prod, materials); err != nil {
			s.stats.ObserveStage(enums.StageSupplierDiscovery.String(), time.Since(started), "failure")
			s.logg.Error(sourcingCtx, "supplier discovery workflow failed", err)
			return nil
		}
		s.stats.ObserveStage(enums.StageSupplierDiscovery.String(), time.Since(started), "success")
		return nil
	})

	_ = group.Wait()
}

// startHeartbeat refreshes the run's liveness column until the returned stop
// function is called. The requeue cron treats a stale heartbeat as a crashed
// worker.
func (s *service) startHeartbeat(ctx context.Context, runID uuid.UUID) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.runs.Heartbeat(ctx, runID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					s.logg.Error(ctx, "run heartbeat failed", err)
				}
			}
		}
	}()
	var stopOnce sync.Once
	return func() {
		stopOnce.Do(func() { close(done) })
	}
}

// extractMaterials flattens created BOM items into the tuples Stage 2 needs.
func extractMaterials(items []models.BOMItem) []materialLine {
	lines := make([]materialLine, 0, len(items))
	for i := range items {
		item := &items[i]
		lines = append(lines, materialLine{
			Name:      item.Name,
			Type:      item.MaterialType,
			Quantity:  item.Quantity,
			Unit:      item.Unit,
			UnitCost:  item.UnitCost,
			TotalCost: item.TotalCost,
		})
	}
	return lines
}
