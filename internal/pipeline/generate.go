package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-ai/threadline-backend/pkg/errors"
	"github.com/threadline-ai/threadline-backend/pkg/inference"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
	"github.com/threadline-ai/threadline-backend/pkg/outbox"
	"github.com/threadline-ai/threadline-backend/pkg/outbox/payloads"
)

const costTolerance = 0.01

// generationOutput is everything Stage 1 derives from one classifier
// response before persistence.
type generationOutput struct {
	Confidence  float64
	TotalCost   *decimal.Decimal
	YieldBuffer float64
	Items       []models.BOMItem
	Snapshot    json.RawMessage
	Warnings    []string
}

// runGeneration executes Stage 1: classify the product images into a BOM,
// persist it atomically and promote the product to bom_generated. Any error
// is fatal to the whole pipeline; the caller rolls the product back to draft.
func (s *service) runGeneration(ctx context.Context, run *models.PipelineRun, prod *models.Product, assets []models.ProductAsset) (*models.BOM, []models.BOMItem, error) {
	req := inference.BOMRequest{
		Images:      make([]inference.ImageRef, 0, len(assets)),
		YieldBuffer: run.YieldBuffer,
	}
	if prod.Description != nil {
		req.Description = *prod.Description
	}
	for _, asset := range assets {
		req.Images = append(req.Images, inference.ImageRef{URL: asset.URL, StorageKey: asset.ObjectKey})
	}

	result, err := s.inference.GenerateBOM(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	output, err := buildGeneration(result, run.YieldBuffer)
	if err != nil {
		return nil, nil, err
	}
	for _, warning := range output.Warnings {
		s.logg.Warn(s.logg.WithField(ctx, "detail", warning), "classifier output needed correction")
	}

	generated := &models.BOM{
		ProductID:   prod.ID,
		Status:      enums.BOMStatusDraft,
		Confidence:  output.Confidence,
		TotalCost:   output.TotalCost,
		YieldBuffer: output.YieldBuffer,
		Version:     1,
	}
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		boms := s.boms.WithTx(tx)
		if _, err := boms.Create(ctx, generated); err != nil {
			return err
		}
		items := make([]models.BOMItem, len(output.Items))
		copy(items, output.Items)
		for i := range items {
			items[i].BOMID = generated.ID
		}
		if err := boms.ReplaceItems(ctx, generated.ID, items); err != nil {
			return err
		}
		if err := boms.AppendVersion(ctx, &models.BOMVersion{
			BOMID:   generated.ID,
			Version: 1,
			Data:    output.Snapshot,
		}); err != nil {
			return err
		}
		changed, err := s.products.WithTx(tx).UpdateStatus(ctx, prod.ID, enums.ProductStatusProcessing, enums.ProductStatusBOMGenerated)
		if err != nil {
			return err
		}
		if changed == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product left processing during generation")
		}
		if err := s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductStatusChanged,
			AggregateType: enums.AggregateProduct,
			AggregateID:   prod.ID,
			Actor:         &outbox.ActorRef{UserID: prod.UserID, Role: "pipeline"},
			Data: payloads.ProductStatusChangedEvent{
				ProductID: prod.ID,
				From:      enums.ProductStatusProcessing,
				To:        enums.ProductStatusBOMGenerated,
				RunID:     run.ID,
			},
			Version: 1,
		}); err != nil {
			return err
		}
		return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBOMGenerated,
			AggregateType: enums.AggregateBOM,
			AggregateID:   generated.ID,
			Actor:         &outbox.ActorRef{UserID: prod.UserID, Role: "pipeline"},
			Data: payloads.BOMGeneratedEvent{
				ProductID:   prod.ID,
				ProductName: prod.Name,
				OwnerID:     prod.UserID,
				BOMID:       generated.ID,
				ItemCount:   len(items),
				Confidence:  output.Confidence,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.runs.MarkGenerationDone(ctx, run.ID, generated.ID); err != nil {
		s.logg.Error(ctx, "marking generation done", err)
	}
	return generated, output.Items, nil
}

type runFailer interface {
	FinishFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type productStatusReverter interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.ProductStatus) (int64, error)
}

// rollbackGeneration reverts the product to draft after the run dies before
// completing Stage 1. From the client's perspective the product looks
// untouched; the run row keeps the failure reason.
func (s *service) rollbackGeneration(ctx context.Context, runID, productID uuid.UUID, cause error) {
	revertToDraft(ctx, s.logg, s.products, s.runs, runID, productID, cause)
}

func revertToDraft(ctx context.Context, logg *logger.Logger, products productStatusReverter, runs runFailer, runID, productID uuid.UUID, cause error) {
	logCtx := logg.WithRunID(logg.WithProductID(ctx, productID.String()), runID.String())
	logg.Error(logCtx, "pipeline run failed, rolling product back to draft", cause)
	if _, err := products.UpdateStatus(ctx, productID, enums.ProductStatusProcessing, enums.ProductStatusDraft); err != nil {
		logg.Error(logCtx, "rolling back product status", err)
	}
	if err := runs.FinishFailed(ctx, runID, truncateReason(cause.Error())); err != nil {
		logg.Error(logCtx, "failing pipeline run", err)
	}
}

func truncateReason(reason string) string {
	const max = 500
	if len(reason) <= max {
		return reason
	}
	return reason[:max]
}

// buildGeneration turns a classifier response into persistable rows. An
// empty category set is a hard failure; a malformed quantity on a single
// item degrades to quantity 1 with a warning.
func buildGeneration(result *inference.BOMResult, yieldBuffer float64) (*generationOutput, error) {
	if result == nil {
		return nil, pkgerrors.New(pkgerrors.CodeCollaborator, "classifier returned no body")
	}
	items := make([]models.BOMItem, 0)
	warnings := make([]string, 0)
	for _, category := range result.BOM.Categories {
		for _, raw := range category.Items {
			item, warning := buildItem(category.Category, raw)
			if warning != "" {
				warnings = append(warnings, warning)
			}
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeCollaborator, "classifier returned no materials")
	}

	snapshot, err := json.Marshal(map[string]any{
		"categories":  result.BOM.Categories,
		"yieldBuffer": yieldBuffer,
		"confidence":  result.Confidence,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding bom snapshot: %w", err)
	}

	return &generationOutput{
		Confidence:  result.Confidence,
		TotalCost:   computeTotalCost(result, items),
		YieldBuffer: yieldBuffer,
		Items:       items,
		Snapshot:    snapshot,
		Warnings:    warnings,
	}, nil
}

func buildItem(category string, raw inference.BOMItemResult) (models.BOMItem, string) {
	warning := ""
	quantity, err := ParseQuantity(raw.Quantity)
	if err != nil {
		quantity = decimal.NewFromInt(1)
		warning = fmt.Sprintf("item %q: %v, assuming quantity 1", raw.Name, err)
	}
	unitCost, totalCost, adjusted := reconcileCosts(raw.UnitCost, raw.TotalCost, quantity)
	if adjusted {
		warning = fmt.Sprintf("item %q: supplied total cost disagrees with unit cost, recomputed", raw.Name)
	}
	item := models.BOMItem{
		Category:     strings.TrimSpace(category),
		Name:         strings.TrimSpace(raw.Name),
		MaterialType: MapMaterialType(category, raw.Type),
		Quantity:     quantity,
		Unit:         strings.TrimSpace(raw.Unit),
		UnitCost:     unitCost,
		TotalCost:    totalCost,
	}
	if len(raw.Specifications) > 0 {
		item.Specifications = raw.Specifications
	}
	if source := strings.TrimSpace(raw.Source); source != "" {
		item.Source = &source
	}
	return item, warning
}

// reconcileCosts enforces totalCost == unitCost * quantity within one cent.
// With only one side present the other is derived; when both disagree beyond
// the tolerance the supplied total is discarded.
func reconcileCosts(unitCost, totalCost *float64, quantity decimal.Decimal) (*decimal.Decimal, *decimal.Decimal, bool) {
	switch {
	case unitCost == nil && totalCost == nil:
		return nil, nil, false
	case unitCost != nil && totalCost == nil:
		unit := decimal.NewFromFloat(*unitCost)
		total := unit.Mul(quantity).Round(2)
		return &unit, &total, false
	case unitCost == nil:
		total := decimal.NewFromFloat(*totalCost).Round(2)
		if quantity.IsZero() {
			return nil, &total, false
		}
		unit := total.Div(quantity).Round(4)
		return &unit, &total, false
	}
	unit := decimal.NewFromFloat(*unitCost)
	supplied := decimal.NewFromFloat(*totalCost)
	expected := unit.Mul(quantity).Round(2)
	if supplied.Sub(expected).Abs().GreaterThan(decimal.NewFromFloat(costTolerance)) {
		return &unit, &expected, true
	}
	rounded := supplied.Round(2)
	return &unit, &rounded, false
}

// computeTotalCost prefers the classifier's own total, then the sum of item
// totals, then nil when nothing is priced.
func computeTotalCost(result *inference.BOMResult, items []models.BOMItem) *decimal.Decimal {
	if result.BOM.TotalCost != nil {
		total := decimal.NewFromFloat(*result.BOM.TotalCost).Round(2)
		return &total
	}
	sum := decimal.Zero
	priced := false
	for i := range items {
		if items[i].TotalCost != nil {
			sum = sum.Add(*items[i].TotalCost)
			priced = true
		}
	}
	if !priced {
		return nil
	}
	rounded := sum.Round(2)
	return &rounded
}
