package pipeline

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db"
	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
	"github.com/threadline-ai/threadline-backend/pkg/inference"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
	"github.com/threadline-ai/threadline-backend/pkg/outbox"
	"github.com/threadline-ai/threadline-backend/pkg/outbox/payloads"
)

// supplierSearchScope keys the shared token bucket. All pipeline runs in the
// process draw supplier-search tokens from the same bucket so concurrent
// runs stay inside the collaborator's rate budget.
const supplierSearchScope = "inference:supplier-search"

const supplierNameCountryIndex = "idx_suppliers_name_country"

type supplierDirectory interface {
	CountSuppliersForMaterial(ctx context.Context, materialName string) (int64, error)
	FindByNameCountry(ctx context.Context, name, country string) (*models.Supplier, error)
	Create(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error)
	AddMaterial(ctx context.Context, material *models.SupplierMaterial) error
}

type supplierSearcher interface {
	GenerateSuppliers(ctx context.Context, req inference.SupplierRequest) (*inference.SupplierResult, error)
}

type pacer interface {
	Wait(ctx context.Context, scope string) error
}

// discoveryWorker walks the ranked material window sequentially, pacing each
// external search through the shared limiter and capping associations per
// material.
type discoveryWorker struct {
	directory   supplierDirectory
	searcher    supplierSearcher
	pacer       pacer
	window      int
	perMaterial int
	logg        *logger.Logger
}

// discover returns the number of supplier-material associations created. A
// failed search or a zero-candidate material is logged and skipped; only
// infrastructure errors before the loop starts abort the workflow.
func (w *discoveryWorker) discover(ctx context.Context, materials []materialLine) (int, error) {
	ranked := rankMaterials(dedupeMaterials(materials))
	if len(ranked) > w.window {
		ranked = ranked[:w.window]
	}

	created := 0
	for _, line := range ranked {
		lineCtx := w.logg.WithField(ctx, "material", line.Name)

		held, err := w.directory.CountSuppliersForMaterial(lineCtx, line.Name)
		if err != nil {
			w.logg.Error(lineCtx, "counting held suppliers", err)
			continue
		}
		capacity := w.perMaterial - int(held)
		if capacity <= 0 {
			w.logg.Info(lineCtx, "material already fully sourced, skipping search")
			continue
		}

		if err := w.pacer.Wait(lineCtx, supplierSearchScope); err != nil {
			return created, err
		}
		quantity, _ := line.Quantity.Float64()
		result, err := w.searcher.GenerateSuppliers(lineCtx, inference.SupplierRequest{
			MaterialName: line.Name,
			MaterialType: line.Type.String(),
			Quantity:     quantity,
			Unit:         line.Unit,
		})
		if err != nil {
			w.logg.Error(lineCtx, "supplier search failed", err)
			continue
		}

		candidates := result.Suppliers
		if len(candidates) > capacity {
			candidates = candidates[:capacity]
		}
		if len(candidates) == 0 {
			w.logg.Info(lineCtx, "no supplier candidates returned")
			continue
		}
		for _, candidate := range candidates {
			if err := w.persistCandidate(lineCtx, line, candidate); err != nil {
				w.logg.Error(w.logg.WithField(lineCtx, "supplier", candidate.Name), "persisting supplier candidate", err)
				continue
			}
			created++
		}
	}
	return created, nil
}

// persistCandidate upserts the supplier by (name, country) and always links
// it to the material. Certifications are written only when the supplier is
// first discovered.
func (w *discoveryWorker) persistCandidate(ctx context.Context, line materialLine, candidate inference.SupplierCandidate) error {
	existing, err := w.directory.FindByNameCountry(ctx, candidate.Name, candidate.Country)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		existing, err = w.directory.Create(ctx, buildSupplier(candidate))
		if err != nil {
			if !db.IsUniqueViolation(err, supplierNameCountryIndex) {
				return err
			}
			// Lost the insert race to a concurrent run.
			existing, err = w.directory.FindByNameCountry(ctx, candidate.Name, candidate.Country)
			if err != nil {
				return err
			}
		}
	default:
		return err
	}

	association := &models.SupplierMaterial{
		SupplierID:   existing.ID,
		MaterialName: line.Name,
		Unit:         line.Unit,
	}
	if candidate.UnitPrice > 0 {
		price := decimal.NewFromFloat(candidate.UnitPrice)
		association.UnitPrice = &price
	}
	if moq := firstInt(candidate.MOQ); moq != nil {
		association.MOQ = moq
	}
	if leadTime := firstInt(candidate.LeadTime); leadTime != nil {
		association.LeadTimeDays = leadTime
	}
	return w.directory.AddMaterial(ctx, association)
}

// runDiscovery executes Stage 2b and, when at least one association was
// created, promotes the product to sourcing.
func (s *service) runDiscovery(ctx context.Context, run *models.PipelineRun, prod *models.Product, materials []materialLine) error {
	worker := &discoveryWorker{
		directory:   s.suppliers,
		searcher:    s.inference,
		pacer:       s.limiter,
		window:      s.cfg.MaterialWindow,
		perMaterial: s.cfg.SuppliersPerItem,
		logg:        s.logg,
	}
	created, err := worker.discover(ctx, materials)
	if err != nil {
		return err
	}
	if markErr := s.runs.MarkSourcingDone(ctx, run.ID, created); markErr != nil {
		s.logg.Error(ctx, "marking sourcing done", markErr)
	}
	s.logg.Info(s.logg.WithField(ctx, "associations", created), "supplier discovery finished")
	if created == 0 {
		return nil
	}

	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := s.products.WithTx(tx).UpdateStatus(ctx, prod.ID, enums.ProductStatusBOMGenerated, enums.ProductStatusSourcing)
		if err != nil {
			return err
		}
		if changed > 0 {
			if err := s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventProductStatusChanged,
				AggregateType: enums.AggregateProduct,
				AggregateID:   prod.ID,
				Actor:         &outbox.ActorRef{UserID: prod.UserID, Role: "pipeline"},
				Data: payloads.ProductStatusChangedEvent{
					ProductID: prod.ID,
					From:      enums.ProductStatusBOMGenerated,
					To:        enums.ProductStatusSourcing,
					RunID:     run.ID,
				},
				Version: 1,
			}); err != nil {
				return err
			}
		}
		return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSuppliersDiscovered,
			AggregateType: enums.AggregateSupplier,
			AggregateID:   prod.ID,
			Actor:         &outbox.ActorRef{UserID: prod.UserID, Role: "pipeline"},
			Data: payloads.SuppliersDiscoveredEvent{
				ProductID:    prod.ID,
				ProductName:  prod.Name,
				OwnerID:      prod.UserID,
				RunID:        run.ID,
				Associations: created,
			},
			Version: 1,
		})
	})
}

// dedupeMaterials keeps the first occurrence of each material name.
func dedupeMaterials(materials []materialLine) []materialLine {
	seen := make(map[string]struct{}, len(materials))
	out := make([]materialLine, 0, len(materials))
	for _, line := range materials {
		key := strings.ToLower(strings.TrimSpace(line.Name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, line)
	}
	return out
}

// rankMaterials orders by estimated total cost descending, tie-broken by
// quantity descending, so the cost drivers get the limited search calls.
func rankMaterials(materials []materialLine) []materialLine {
	ranked := make([]materialLine, len(materials))
	copy(ranked, materials)
	sort.SliceStable(ranked, func(i, j int) bool {
		costI := estimatedCost(ranked[i])
		costJ := estimatedCost(ranked[j])
		if !costI.Equal(costJ) {
			return costI.GreaterThan(costJ)
		}
		return ranked[i].Quantity.GreaterThan(ranked[j].Quantity)
	})
	return ranked
}

// estimatedCost prefers the item's total cost, then unit cost times
// quantity, then zero for unpriced lines.
func estimatedCost(line materialLine) decimal.Decimal {
	if line.TotalCost != nil {
		return *line.TotalCost
	}
	if line.UnitCost != nil {
		return line.UnitCost.Mul(line.Quantity)
	}
	return decimal.Zero
}

// buildSupplier maps a candidate onto a new supplier row with deduplicated
// certifications.
func buildSupplier(candidate inference.SupplierCandidate) *models.Supplier {
	supplier := &models.Supplier{
		Name:    strings.TrimSpace(candidate.Name),
		Country: strings.TrimSpace(candidate.Country),
		Status:  enums.SupplierStatusPendingVerification,
	}
	if city := strings.TrimSpace(candidate.City); city != "" {
		supplier.City = &city
	}
	if len(candidate.Coordinates) == 2 {
		lng, lat := candidate.Coordinates[0], candidate.Coordinates[1]
		supplier.Longitude = &lng
		supplier.Latitude = &lat
	}
	if candidate.Rating > 0 {
		rating := decimal.NewFromFloat(candidate.Rating)
		supplier.Rating = &rating
	}
	if candidate.Reliability > 0 {
		reliability := decimal.NewFromFloat(candidate.Reliability)
		supplier.Reliability = &reliability
	}
	if website := strings.TrimSpace(candidate.Website); website != "" {
		supplier.Website = &website
	}
	if email := strings.TrimSpace(candidate.ContactEmail); email != "" {
		supplier.ContactEmail = &email
	}
	seen := make(map[enums.CertificationType]struct{}, len(candidate.Certifications))
	for _, raw := range candidate.Certifications {
		cert := MapCertification(raw)
		if _, ok := seen[cert]; ok {
			continue
		}
		seen[cert] = struct{}{}
		supplier.Certs = append(supplier.Certs, models.SupplierCertification{Certification: cert})
	}
	return supplier
}

// firstInt extracts the leading integer from free text like "500 units" or
// "15 days".
func firstInt(raw string) *int {
	match := quantityPattern.FindString(raw)
	if match == "" {
		return nil
	}
	parsed, err := decimal.NewFromString(match)
	if err != nil {
		return nil
	}
	value := int(parsed.IntPart())
	return &value
}
