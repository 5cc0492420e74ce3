package controllers

import (
	"net/http"

	"github.com/threadline-ai/threadline-backend/api/responses"
	"github.com/threadline-ai/threadline-backend/api/validators"
	"github.com/threadline-ai/threadline-backend/internal/pipeline"
	pkgerrors "github.com/threadline-ai/threadline-backend/pkg/errors"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
)

// StartGeneration kicks off the asynchronous BOM pipeline for a product and
// responds 202 with the run handle; clients poll product status and the run
// list for progress.
func StartGeneration(svc pipeline.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pipeline service unavailable"))
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

		var payload startGenerationRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.StartGeneration(r.Context(), uid, productID, pipeline.StartGenerationInput{
			YieldBuffer: payload.YieldBuffer,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

// ListRuns returns recent pipeline runs for a product, newest first.
func ListRuns(svc pipeline.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pipeline service unavailable"))
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

		runs, err := svc.ListRuns(r.Context(), uid, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"runs": runs})
	}
}

type startGenerationRequest struct {
	YieldBuffer *float64 `json:"yieldBuffer,omitempty" validate:"omitempty,gte=0,lte=50"`
}
