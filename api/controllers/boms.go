package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/threadline-ai/threadline-backend/api/responses"
	"github.com/threadline-ai/threadline-backend/api/validators"
	bom "github.com/threadline-ai/threadline-backend/internal/boms"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-ai/threadline-backend/pkg/errors"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
)

// GetBOM returns the product's bill of materials with its items.
func GetBOM(svc bom.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bom service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), uid, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// UpdateBOM applies an edit; any accepted edit bumps the version and appends
// a snapshot.
func UpdateBOM(svc bom.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bom service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateBOMRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Update(r.Context(), uid, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// ListBOMVersions returns the append-only version history.
func ListBOMVersions(svc bom.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bom service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		versions, err := svc.ListVersions(r.Context(), uid, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"versions": versions})
	}
}

// LockBOM freezes the BOM against further edits.
func LockBOM(svc bom.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bom service unavailable"))
			return
		}

		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Lock(r.Context(), uid, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

type updateBOMRequest struct {
	YieldBuffer *float64          `json:"yieldBuffer,omitempty" validate:"omitempty,gte=0,lte=50"`
	Status      *string           `json:"status,omitempty"`
	Items       *[]bomItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
	ChangeNote  *string           `json:"changeNote,omitempty" validate:"omitempty,max=500"`
}

type bomItemRequest struct {
	Category       string           `json:"category" validate:"required,max=100"`
	Name           string           `json:"name" validate:"required,max=200"`
	MaterialType   string           `json:"materialType" validate:"required"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Unit           string           `json:"unit" validate:"required,max=50"`
	UnitCost       *decimal.Decimal `json:"unitCost,omitempty"`
	Specifications json.RawMessage  `json:"specifications,omitempty"`
	Source         *string          `json:"source,omitempty" validate:"omitempty,max=200"`
}

func (r updateBOMRequest) toUpdateInput() (bom.UpdateInput, error) {
	input := bom.UpdateInput{
		YieldBuffer: r.YieldBuffer,
		ChangeNote:  r.ChangeNote,
	}

	if r.Status != nil {
		status, err := enums.ParseBOMStatus(strings.TrimSpace(*r.Status))
		if err != nil {
			return bom.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		input.Status = &status
	}

	if r.Items != nil {
		items := make([]bom.ItemInput, 0, len(*r.Items))
		for _, item := range *r.Items {
			materialType, err := enums.ParseMaterialType(strings.TrimSpace(item.MaterialType))
			if err != nil {
				return bom.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid material type").
					WithDetails(map[string]any{"item": item.Name})
			}
			if item.Quantity.IsNegative() {
				return bom.UpdateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative").
					WithDetails(map[string]any{"item": item.Name})
			}
			items = append(items, bom.ItemInput{
				Category:       strings.TrimSpace(item.Category),
				Name:           strings.TrimSpace(item.Name),
				MaterialType:   materialType,
				Quantity:       item.Quantity,
				Unit:           strings.TrimSpace(item.Unit),
				UnitCost:       item.UnitCost,
				Specifications: item.Specifications,
				Source:         item.Source,
			})
		}
		input.Items = &items
	}

	return input, nil
}
