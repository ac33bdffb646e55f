package middleware_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/studiooh/proposal-export-service/middleware"
)

var _ = Describe("EnforcePrivateAuth", func() {
	psks := []string{"psk-1", "psk-2"}

	DescribeTable("should authenticate internal callers",
		func(verifier middleware.Verifier, bearer string, keys []string, expectedStatus int) {
			called := false
			handler := middleware.EnforcePrivateAuth(verifier, psks)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/render/pdf", nil)
			if bearer != "" {
				req.Header.Set("Authorization", "Bearer "+bearer)
			}
			for _, k := range keys {
				req.Header.Add(middleware.PSKHeader, k)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(expectedStatus))
			Expect(called).To(Equal(expectedStatus == http.StatusOK))
		},
		Entry("valid psk", nil, "", []string{"psk-1"}, http.StatusOK),
		Entry("second valid psk", nil, "", []string{"psk-2"}, http.StatusOK),
		Entry("invalid psk", nil, "", []string{"nope"}, http.StatusUnauthorized),
		Entry("empty psk", nil, "", []string{""}, http.StatusUnauthorized),
		Entry("missing psk", nil, "", nil, http.StatusBadRequest),
		Entry("two psk headers", nil, "", []string{"psk-1", "psk-2"}, http.StatusBadRequest),
		Entry("valid token", &stubVerifier{valid: "good"}, "good", nil, http.StatusOK),
		Entry("invalid token does not fall back to psk", &stubVerifier{valid: "good"}, "bad", []string{"psk-1"}, http.StatusUnauthorized),
		Entry("psk when oidc is configured", &stubVerifier{valid: "good"}, "", []string{"psk-1"}, http.StatusOK),
		Entry("token ignored without oidc", nil, "good", []string{"psk-1"}, http.StatusOK),
	)
})
