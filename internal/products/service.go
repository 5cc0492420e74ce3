package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db"
	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-ai/threadline-backend/pkg/errors"
	"github.com/threadline-ai/threadline-backend/pkg/outbox"
	"github.com/threadline-ai/threadline-backend/pkg/outbox/payloads"
	"github.com/threadline-ai/threadline-backend/pkg/pagination"
)

// Service exposes product management operations scoped to the owning user.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*ProductDTO, error)
	Get(ctx context.Context, userID, productID uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, userID uuid.UUID, input ListInput) (*ListResult, error)
	Update(ctx context.Context, userID, productID uuid.UUID, input UpdateInput) (*ProductDTO, error)
	Archive(ctx context.Context, userID, productID uuid.UUID) error
}

// CreateInput holds the validated payload to create a product.
type CreateInput struct {
	Name        string
	Description *string
	Category    *string
}

// UpdateInput holds optional mutation values for a product.
type UpdateInput struct {
	Name        *string
	Description *string
	Category    *string
	Status      *enums.ProductStatus
}

// ListInput configures pagination and filtering for the owner's products.
type ListInput struct {
	Limit  int
	Cursor string
	Status *enums.ProductStatus
}

type service struct {
	repo      *Repository
	dbClient  *db.Client
	outboxSvc *outbox.Service
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient *db.Client, outboxSvc *outbox.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{
		repo:      repo,
		dbClient:  dbClient,
		outboxSvc: outboxSvc,
	}, nil
}

// Create inserts a new draft product for the user.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	product := &models.Product{
		UserID:      userID,
		Name:        name,
		Description: input.Description,
		Category:    input.Category,
		Status:      enums.ProductStatusDraft,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(created), nil
}

// Get loads one product with assets, enforcing ownership.
func (s *service) Get(ctx context.Context, userID, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadOwned(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

// List returns the user's products newest first.
func (s *service) List(ctx context.Context, userID uuid.UUID, input ListInput) (*ListResult, error) {
	params := listProductsParams{
		UserID: userID,
		Limit:  input.Limit,
		Status: input.Status,
	}
	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	result := &ListResult{Products: make([]ProductDTO, 0, len(rows))}
	for i := range rows {
		result.Products = append(result.Products, *NewProductDTO(&rows[i]))
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// Update applies a partial mutation. Status changes must follow the product
// lifecycle, and pipeline-owned statuses cannot be set through this surface.
func (s *service) Update(ctx context.Context, userID, productID uuid.UUID, input UpdateInput) (*ProductDTO, error) {
	product, err := s.loadOwned(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	if input.Status != nil {
		if err := validateStatusChange(product.Status, *input.Status); err != nil {
			return nil, err
		}
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		from := product.Status
		applyUpdate(product, input)
		if _, err := txRepo.Update(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}

		if input.Status != nil && *input.Status != from {
			event := outbox.DomainEvent{
				EventType:     enums.EventProductStatusChanged,
				AggregateType: enums.AggregateProduct,
				AggregateID:   product.ID,
				Actor:         &outbox.ActorRef{UserID: userID, Role: "user"},
				Data: payloads.ProductStatusChangedEvent{
					ProductID: product.ID,
					From:      from,
					To:        *input.Status,
				},
				Version: 1,
			}
			if err := s.outboxSvc.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status event")
			}
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	updated, err := s.repo.GetDetail(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	return NewProductDTO(updated), nil
}

// Archive moves the product to the archived terminal state.
func (s *service) Archive(ctx context.Context, userID, productID uuid.UUID) error {
	product, err := s.loadOwned(ctx, userID, productID)
	if err != nil {
		return err
	}
	if !canArchive(product.Status) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot archive product in status %s", product.Status))
	}

	changed, err := s.repo.UpdateStatus(ctx, product.ID, product.Status, enums.ProductStatusArchived)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive product")
	}
	if changed == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "product status changed concurrently")
	}
	return nil
}

func (s *service) loadOwned(ctx context.Context, userID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.GetDetail(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to user")
	}
	return product, nil
}

// validateStatusChange enforces the lifecycle for user-driven edits.
// Processing, bom_generated, and sourcing belong to the pipeline; archiving
// is a user action available from any settled state.
func validateStatusChange(current, next enums.ProductStatus) error {
	switch next {
	case enums.ProductStatusProcessing, enums.ProductStatusBOMGenerated, enums.ProductStatusSourcing:
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("status %s is managed by the pipeline", next))
	case enums.ProductStatusArchived:
		if !canArchive(current) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot archive product in status %s", current))
		}
		return nil
	}
	if !current.CanTransitionTo(next) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move product from %s to %s", current, next))
	}
	return nil
}

func canArchive(current enums.ProductStatus) bool {
	return current != enums.ProductStatusArchived && current != enums.ProductStatusProcessing
}

func applyUpdate(product *models.Product, input UpdateInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Category != nil {
		product.Category = input.Category
	}
	if input.Status != nil {
		product.Status = *input.Status
	}
}
