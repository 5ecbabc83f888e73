package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"pairprog/internal/models"
	"pairprog/internal/utils"
)

type contextKey string

const validatedRequestKey contextKey = "validated_request"

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Validator is implemented by request models.
type Validator interface {
	Validate() error
}

// ValidateRequest decodes the JSON body into a fresh *E, runs its Validate
// method and stores it in the request context for GetValidatedRequest.
// Decode and validation failures answer 400 with a models.ErrorResponse.
func ValidateRequest[E any, T interface {
	*E
	Validator
}]() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := T(new(E))

			body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
			if err := json.NewDecoder(body).Decode(req); err != nil {
				utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
					Code:    "invalid_json",
					Message: "Invalid JSON in request body",
				})
				return
			}

			if err := req.Validate(); err != nil {
				var errResp *models.ErrorResponse
				if errors.As(err, &errResp) {
					utils.JSON(w, http.StatusBadRequest, *errResp)
				} else {
					utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
						Code:    "validation_error",
						Message: err.Error(),
					})
				}
				return
			}

			ctx := context.WithValue(r.Context(), validatedRequestKey, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetValidatedRequest returns the request stored by ValidateRequest[E], or
// nil when the middleware did not run.
func GetValidatedRequest[E any](r *http.Request) *E {
	req, _ := r.Context().Value(validatedRequestKey).(*E)
	return req
}
