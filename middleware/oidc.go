package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Verifier verifies ID tokens from an OIDC provider.
type Verifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer and returns a verifier for tokens
// issued to clientID. timeout bounds discovery; zero means 10 seconds.
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID string, timeout time.Duration) (Verifier, error) {
	if issuerURL == "" {
		return nil, fmt.Errorf("issuer URL cannot be empty")
	}
	if clientID == "" {
		return nil, fmt.Errorf("client ID cannot be empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	discoveryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	// the remote key set keeps using this client after discovery
	discoveryCtx = oidc.ClientContext(discoveryCtx, &http.Client{Timeout: timeout})

	provider, err := oidc.NewProvider(discoveryCtx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &oidcVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// Verify validates an ID token and returns the verified token with claims.
func (v *oidcVerifier) Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error) {
	if rawIDToken == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}
	token, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	return token, nil
}
