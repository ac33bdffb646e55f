/*
Copyright 2022 Red Hat Inc.
SPDX-License-Identifier: Apache-2.0
*/
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/redhatinsights/platform-go-middlewares/v2/identity"
	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/errors"
	"github.com/studiooh/proposal-export-service/models"
)

type userIdentityKey int

const (
	UserIdentityKey userIdentityKey = iota
	// {"identity":{"account_number":"10001","org_id":"10000001","internal":{"org_id":"10000001"},"type":"User","user":{"username":"user_dev"}}}
	debugHeader string = "eyJpZGVudGl0eSI6eyJhY2NvdW50X251bWJlciI6IjEwMDAxIiwib3JnX2lkIjoiMTAwMDAwMDEiLCJpbnRlcm5hbCI6eyJvcmdfaWQiOiIxMDAwMDAwMSJ9LCJ0eXBlIjoiVXNlciIsInVzZXIiOnsidXNlcm5hbWUiOiJ1c2VyX2RldiJ9fX0K"
)

// InjectDebugUserIdentity sets a valid x-rh-identity header on requests that
// lack one. Only wired in when running in debug mode.
func InjectDebugUserIdentity(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.Header["X-Rh-Identity"]) != 1 {
				r.Header["X-Rh-Identity"] = []string{debugHeader}
				log.Debug("injecting debug header")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// EnforceAuthentication accepts an OIDC bearer token when a verifier is
// configured, and otherwise the x-rh-identity header. The resulting user is
// stored in the request context.
func EnforceAuthentication(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				user models.User
				err  error
			)
			if bearer, ok := bearerToken(r); ok && verifier != nil {
				user, err = authenticateOIDC(r.Context(), verifier, bearer)
				if err != nil {
					errors.UnauthorizedError(w, r, fmt.Sprintf("OIDC authentication failed: %v", err))
					return
				}
			} else {
				user, err = authenticateXRHIdentity(r.Context())
				if err != nil {
					errors.BadRequestError(w, r, fmt.Errorf("authentication failed: %w", err))
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserIdentityKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}

func authenticateOIDC(ctx context.Context, verifier Verifier, rawToken string) (models.User, error) {
	if rawToken == "" {
		return models.User{}, fmt.Errorf("empty bearer token")
	}
	idToken, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		return models.User{}, err
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return models.User{}, fmt.Errorf("failed to parse claims: %w", err)
	}

	user := models.User{Username: usernameFromClaims(claims, idToken.Subject)}
	if orgID, ok := claims["org_id"].(string); ok {
		user.OrganizationID = orgID
	}
	if accountID, ok := claims["account_id"].(string); ok {
		user.AccountID = accountID
	}
	if user.OrganizationID == "" {
		return models.User{}, fmt.Errorf("token has no org_id claim")
	}
	return user, nil
}

func authenticateXRHIdentity(ctx context.Context) (models.User, error) {
	id := identity.Get(ctx)
	if id.Identity.OrgID == "" {
		return models.User{}, fmt.Errorf("missing or invalid x-rh-identity header")
	}
	if id.Identity.Type != "User" {
		return models.User{}, fmt.Errorf("'%s' is not a valid user type", id.Identity.Type)
	}
	if id.Identity.User == nil || id.Identity.User.Username == "" {
		return models.User{}, fmt.Errorf("x-rh-identity has no username")
	}
	return models.User{
		AccountID:      id.Identity.AccountNumber,
		OrganizationID: id.Identity.OrgID,
		Username:       id.Identity.User.Username,
	}, nil
}

// usernameFromClaims falls back from preferred_username to email, name and
// finally the subject.
func usernameFromClaims(claims map[string]interface{}, subject string) string {
	for _, key := range []string{"preferred_username", "email", "name"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return subject
}

// GetUserIdentity returns the user stored in the request context.
func GetUserIdentity(ctx context.Context) models.User {
	return ctx.Value(UserIdentityKey).(models.User)
}
