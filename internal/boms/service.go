package bom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db"
	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-ai/threadline-backend/pkg/errors"
	"github.com/threadline-ai/threadline-backend/pkg/outbox"
	"github.com/threadline-ai/threadline-backend/pkg/outbox/payloads"
)

// Service exposes BOM read and edit operations scoped to the product owner.
type Service interface {
	Get(ctx context.Context, userID, productID uuid.UUID) (*BOMDTO, error)
	Update(ctx context.Context, userID, productID uuid.UUID, input UpdateInput) (*BOMDTO, error)
	ListVersions(ctx context.Context, userID, productID uuid.UUID) ([]VersionDTO, error)
	Lock(ctx context.Context, userID, productID uuid.UUID) (*BOMDTO, error)
}

// UpdateInput holds optional mutation values for a BOM. Any accepted edit
// increments the version and appends a snapshot.
type UpdateInput struct {
	YieldBuffer *float64
	Status      *enums.BOMStatus
	Items       *[]ItemInput
	ChangeNote  *string
}

// ItemInput is one material line in an edit payload.
type ItemInput struct {
	Category       string
	Name           string
	MaterialType   enums.MaterialType
	Quantity       decimal.Decimal
	Unit           string
	UnitCost       *decimal.Decimal
	Specifications json.RawMessage
	Source         *string
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo      *Repository
	dbClient  *db.Client
	products  productLoader
	outboxSvc *outbox.Service
}

// NewService constructs a BOM service instance.
func NewService(repo *Repository, dbClient *db.Client, products productLoader, outboxSvc *outbox.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bom repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{
		repo:      repo,
		dbClient:  dbClient,
		products:  products,
		outboxSvc: outboxSvc,
	}, nil
}

// Get loads the product's BOM with items.
func (s *service) Get(ctx context.Context, userID, productID uuid.UUID) (*BOMDTO, error) {
	bom, err := s.loadOwned(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	return NewBOMDTO(bom), nil
}

// ListVersions returns snapshots newest first.
func (s *service) ListVersions(ctx context.Context, userID, productID uuid.UUID) ([]VersionDTO, error) {
	bom, err := s.loadOwned(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListVersions(ctx, bom.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bom versions")
	}
	versions := make([]VersionDTO, 0, len(rows))
	for i := range rows {
		versions = append(versions, NewVersionDTO(&rows[i]))
	}
	return versions, nil
}

// Update applies an edit, bumps the version, and appends a snapshot of the
// resulting state. Locked BOMs reject all edits.
func (s *service) Update(ctx context.Context, userID, productID uuid.UUID, input UpdateInput) (*BOMDTO, error) {
	if input.YieldBuffer == nil && input.Status == nil && input.Items == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if input.YieldBuffer != nil {
		if *input.YieldBuffer < 0 || *input.YieldBuffer > 50 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "yield_buffer must be between 0 and 50")
		}
	}
	if input.Status != nil {
		if err := validateStatusEdit(*input.Status); err != nil {
			return nil, err
		}
	}
	if input.Items != nil {
		for _, item := range *input.Items {
			if err := validateItem(item); err != nil {
				return nil, err
			}
		}
	}

	bom, err := s.loadOwned(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if bom.Status == enums.BOMStatusLocked {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bom is locked")
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if input.YieldBuffer != nil {
			bom.YieldBuffer = *input.YieldBuffer
		}
		if input.Status != nil {
			bom.Status = *input.Status
			if *input.Status == enums.BOMStatusVerified {
				bom.VerifiedBy = &userID
			}
		}
		if input.Items != nil {
			items := buildItems(bom.ID, *input.Items)
			if err := txRepo.ReplaceItems(ctx, bom.ID, items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replace bom items")
			}
			bom.Items = items
			bom.TotalCost = sumItemCosts(items)
		}
		bom.Version++

		if err := txRepo.Save(ctx, bom); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update bom")
		}

		snapshot, err := json.Marshal(NewBOMDTO(bom))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode bom snapshot")
		}
		version := &models.BOMVersion{
			BOMID:      bom.ID,
			Version:    bom.Version,
			Data:       snapshot,
			ChangeNote: input.ChangeNote,
			CreatedBy:  &userID,
		}
		if err := txRepo.AppendVersion(ctx, version); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: append bom version")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventBOMVersionCreated,
			AggregateType: enums.AggregateBOM,
			AggregateID:   bom.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: "user"},
			Data: payloads.BOMVersionCreatedEvent{
				BOMID:     bom.ID,
				ProductID: bom.ProductID,
				Version:   bom.Version,
			},
			Version: 1,
		}
		if err := s.outboxSvc.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit bom version event")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bom")
	}

	updated, err := s.repo.FindByID(ctx, bom.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bom")
	}
	return NewBOMDTO(updated), nil
}

// Lock freezes the BOM against further edits.
func (s *service) Lock(ctx context.Context, userID, productID uuid.UUID) (*BOMDTO, error) {
	bom, err := s.loadOwned(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if bom.Status == enums.BOMStatusLocked {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bom is already locked")
	}

	applyLock(bom, userID, time.Now().UTC())
	if err := s.repo.Save(ctx, bom); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock bom")
	}
	return NewBOMDTO(bom), nil
}

// applyLock freezes the BOM and records the locking user as its verifier.
func applyLock(bom *models.BOM, userID uuid.UUID, now time.Time) {
	bom.Status = enums.BOMStatusLocked
	bom.LockedAt = &now
	bom.VerifiedBy = &userID
}

func (s *service) loadOwned(ctx context.Context, userID, productID uuid.UUID) (*models.BOM, error) {
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

	bom, err := s.repo.FindByProductID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bom not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bom")
	}
	return bom, nil
}

// validateStatusEdit limits user edits to review states. Locking has its own
// operation and draft is the generation stage's starting point.
func validateStatusEdit(status enums.BOMStatus) error {
	switch status {
	case enums.BOMStatusPendingVerification, enums.BOMStatusVerified:
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("status %s cannot be set directly", status))
	}
}

func validateItem(item ItemInput) error {
	if item.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if !item.MaterialType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown material type %q", item.MaterialType))
	}
	if item.Quantity.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}
	return nil
}

func buildItems(bomID uuid.UUID, inputs []ItemInput) []models.BOMItem {
	items := make([]models.BOMItem, 0, len(inputs))
	for _, input := range inputs {
		item := models.BOMItem{
			BOMID:          bomID,
			Category:       input.Category,
			Name:           input.Name,
			MaterialType:   input.MaterialType,
			Quantity:       input.Quantity,
			Unit:           input.Unit,
			UnitCost:       input.UnitCost,
			Specifications: input.Specifications,
			Source:         input.Source,
		}
		if input.UnitCost != nil {
			total := input.UnitCost.Mul(input.Quantity).Round(2)
			item.TotalCost = &total
		}
		items = append(items, item)
	}
	return items
}

func sumItemCosts(items []models.BOMItem) *decimal.Decimal {
	var total decimal.Decimal
	found := false
	for _, item := range items {
		if item.TotalCost != nil {
			total = total.Add(*item.TotalCost)
			found = true
		}
	}
	if !found {
		return nil
	}
	total = total.Round(2)
	return &total
}
