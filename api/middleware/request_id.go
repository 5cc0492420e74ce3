package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/threadline-ai/threadline-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID threads a request id through the response header and the
// request-scoped logger. Caller-supplied ids are honored so traces can span
// services; otherwise one is minted.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
