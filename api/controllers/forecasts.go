package controllers

import (
	"net/http"

	"github.com/threadline-ai/threadline-backend/api/responses"
	"github.com/threadline-ai/threadline-backend/api/validators"
	forecast "github.com/threadline-ai/threadline-backend/internal/forecasts"
	pkgerrors "github.com/threadline-ai/threadline-backend/pkg/errors"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
)

// ListForecasts returns the market-demand forecasts stored for a product.
func ListForecasts(svc forecast.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forecast service unavailable"))
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

		forecasts, err := svc.ListForProduct(r.Context(), uid, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"forecasts": forecasts})
	}
}

type priceForecastRequest struct {
	MaterialName string `json:"materialName" validate:"required,max=200"`
	MaterialType string `json:"materialType" validate:"omitempty,max=100"`
	Unit         string `json:"unit" validate:"omitempty,max=50"`
	Weeks        int    `json:"weeks" validate:"omitempty,gte=1,lte=52"`
}

// PriceForecast projects weekly unit prices for a material on demand.
func PriceForecast(svc forecast.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forecast service unavailable"))
			return
		}

		if _, err := actorID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req priceForecastRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PriceForecast(r.Context(), forecast.PriceForecastInput{
			MaterialName: req.MaterialName,
			MaterialType: req.MaterialType,
			Unit:         req.Unit,
			Weeks:        req.Weeks,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
