package oauth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/fitbit"
	"golang.org/x/oauth2/google"

	"github.com/healthsync/server/pkg/domain/health"
)

const (
	ProviderFitbit = "fitbit"
	ProviderGoogle = "google"
	ProviderNotion = "notion"
)

// fitbitScopes mirrors the scopes the Fitbit app was registered with.
var fitbitScopes = []string{
	"activity", "heartrate", "location", "nutrition", "profile",
	"settings", "sleep", "social", "weight",
}

const driveReadonlyScope = "https://www.googleapis.com/auth/drive.readonly"

// ClientCredentials identifies the registered OAuth application of a provider.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// TokenURL overrides the provider's token endpoint (tests, proxies).
	TokenURL string
}

// ProviderConfig returns the oauth2 configuration for fitbit or google.
func ProviderConfig(provider string, creds ClientCredentials) (*oauth2.Config, error) {
	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURL,
	}

	switch provider {
	case ProviderFitbit:
		// Fitbit expects client credentials in a Basic auth header.
		cfg.Endpoint = fitbit.Endpoint
		cfg.Endpoint.AuthStyle = oauth2.AuthStyleInHeader
		cfg.Scopes = fitbitScopes
	case ProviderGoogle:
		cfg.Endpoint = google.Endpoint
		cfg.Endpoint.AuthStyle = oauth2.AuthStyleInParams
		cfg.Scopes = []string{driveReadonlyScope}
	default:
		return nil, fmt.Errorf("unsupported oauth provider %q", provider)
	}

	if creds.TokenURL != "" {
		cfg.Endpoint.TokenURL = creds.TokenURL
	}
	return cfg, nil
}

// AuthCodeURL is the consent URL the operator opens to start the authorization-code flow.
func AuthCodeURL(provider string, cfg *oauth2.Config, state string) string {
	if provider == ProviderGoogle {
		// offline + consent guarantees Google hands out a refresh token.
		return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	}
	return cfg.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for tokens and stores them.
func ExchangeCode(ctx context.Context, provider string, cfg *oauth2.Config, store CredentialStore, code string) (*Token, error) {
	if code == "" {
		return nil, &health.AuthError{Provider: provider, Err: errors.New("no authorization code")}
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, &health.AuthError{Provider: provider, Err: fmt.Errorf("exchange code: %w", err)}
	}

	token := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if err := store.Save(ctx, provider, token); err != nil {
		return nil, fmt.Errorf("save %s tokens: %w", provider, err)
	}
	return token, nil
}

// StaticTokenSource serves a fixed secret that cannot be refreshed.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (*Token, error) {
	if s == "" {
		return nil, &health.AuthError{Provider: ProviderNotion, Err: errors.New("missing integration token")}
	}
	return &Token{AccessToken: string(s)}, nil
}

func (s StaticTokenSource) ForceRefresh(context.Context) (*Token, error) {
	return nil, &health.AuthError{Provider: ProviderNotion, Err: errors.New("integration token rejected and cannot be refreshed")}
}
