/*
Copyright 2022 Red Hat Inc.
SPDX-License-Identifier: Apache-2.0
*/
package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/studiooh/proposal-export-service/errors"
)

// PSKHeader carries the pre-shared key of internal callers.
const PSKHeader = "X-Proposal-Psk"

// EnforcePrivateAuth guards the private server. A bearer token is verified
// with OIDC when a verifier is configured; a request with a bearer token
// that fails verification does not fall back to the PSK.
func EnforcePrivateAuth(verifier Verifier, psks []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok && verifier != nil {
				if token == "" {
					errors.UnauthorizedError(w, r, "empty bearer token")
					return
				}
				if _, err := verifier.Verify(r.Context(), token); err != nil {
					errors.UnauthorizedError(w, r, fmt.Sprintf("OIDC authentication failed: %v", err))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			psk := r.Header.Values(PSKHeader)
			if len(psk) != 1 {
				errors.BadRequestError(w, r, "missing x-proposal-psk header")
				return
			}
			if !validPSK(psks, psk[0]) {
				errors.UnauthorizedError(w, r, "invalid x-proposal-psk header")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validPSK(psks []string, candidate string) bool {
	if candidate == "" {
		return false
	}
	found := false
	for _, psk := range psks {
		if subtle.ConstantTimeCompare([]byte(psk), []byte(candidate)) == 1 {
			found = true
		}
	}
	return found
}
