package assets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// NewClientCredentialsSource returns a token source for an OAuth2 client
// credentials grant. Tokens are cached and refreshed by the source. The
// token endpoint is called with the default client, outside the network
// guard applied to image fetches.
func NewClientCredentialsSource(ctx context.Context, tokenURL, clientID, clientSecret string, scopes []string) (oauth2.TokenSource, error) {
	if tokenURL == "" {
		return nil, fmt.Errorf("token URL cannot be empty")
	}
	if clientID == "" {
		return nil, fmt.Errorf("client ID cannot be empty")
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("client secret cannot be empty")
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	return config.TokenSource(ctx), nil
}
