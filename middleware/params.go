package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/studiooh/proposal-export-service/errors"
	"github.com/studiooh/proposal-export-service/models"
)

type internalKey int

const urlParamsKey internalKey = iota

// ProposalUUIDCtx parses `proposalUUID` from the url into the request
// context, rejecting anything that is not a uuid.
func ProposalUUIDCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "proposalUUID")
		id, err := uuid.Parse(raw)
		if err != nil {
			errors.BadRequestError(w, r, fmt.Sprintf("'%s' is not a valid proposal UUID", raw))
			return
		}

		ctx := context.WithValue(r.Context(), urlParamsKey, &models.URLParams{ProposalUUID: id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetURLParams fetches the urlParams from the context.
func GetURLParams(ctx context.Context) *models.URLParams {
	return ctx.Value(urlParamsKey).(*models.URLParams)
}

// JSONContentType defaults responses to JSON. Handlers that stream files
// set their own Content-Type.
func JSONContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
