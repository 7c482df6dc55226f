package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/healthsync/server/pkg/domain/health"
)

// Token represents the OAuth token structure we care about
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// CredentialStore loads and persists the token pair of a provider.
type CredentialStore interface {
	Load(ctx context.Context, provider string) (*Token, error)
	Save(ctx context.Context, provider string, token *Token) error
}

// TokenSource returns a valid token.
// It is safe for concurrent use by multiple goroutines.
type TokenSource interface {
	Token(context.Context) (*Token, error)
	ForceRefresh(context.Context) (*Token, error)
}

// expiryLeeway is how close to expiry a token is refreshed proactively.
const expiryLeeway = time.Minute

// StoreTokenSource reads tokens from a CredentialStore and refreshes them through
// the provider's token endpoint, writing the new pair back to the store.
type StoreTokenSource struct {
	store    CredentialStore
	provider string
	config   *oauth2.Config
	logger   *slog.Logger
	now      func() time.Time
	mu       sync.Mutex
}

func NewStoreTokenSource(store CredentialStore, provider string, config *oauth2.Config, logger *slog.Logger) *StoreTokenSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreTokenSource{
		store:    store,
		provider: provider,
		config:   config,
		logger:   logger.With("component", "oauth", "provider", provider),
		now:      time.Now,
	}
}

// Token returns the stored token, refreshing it first when it is missing or about to expire.
func (s *StoreTokenSource) Token(ctx context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if current.AccessToken == "" {
		s.logger.Info("No access token stored, refreshing")
		return s.refresh(ctx, current.RefreshToken)
	}

	if !current.Expiry.IsZero() && s.now().Add(expiryLeeway).After(current.Expiry) {
		s.logger.Info("Access token expired or expiring, refreshing", "expiry", current.Expiry)
		return s.refresh(ctx, current.RefreshToken)
	}

	return current, nil
}

// ForceRefresh refreshes regardless of the stored expiry (used after a 401).
func (s *StoreTokenSource) ForceRefresh(ctx context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-read so a refresh token rotated by another process is honoured.
	current, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, current.RefreshToken)
}

func (s *StoreTokenSource) load(ctx context.Context) (*Token, error) {
	current, err := s.store.Load(ctx, s.provider)
	if err != nil {
		return nil, &health.AuthError{Provider: s.provider, Err: fmt.Errorf("load credentials: %w", err)}
	}
	if current == nil {
		current = &Token{}
	}
	return current, nil
}

// refresh performs the refresh-token exchange and persists the new pair.
func (s *StoreTokenSource) refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, &health.AuthError{Provider: s.provider, Err: errors.New("missing refresh token")}
	}

	// An empty access token forces the oauth2 package to hit the token endpoint.
	src := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	fresh, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			err = fmt.Errorf("refresh failed with status %d: %w", retrieveErr.Response.StatusCode, err)
		}
		return nil, &health.AuthError{Provider: s.provider, Err: err}
	}

	token := &Token{
		AccessToken:  fresh.AccessToken,
		RefreshToken: fresh.RefreshToken,
		Expiry:       fresh.Expiry,
	}
	// Google does not rotate refresh tokens; keep the one we have.
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	if err := s.store.Save(ctx, s.provider, token); err != nil {
		return nil, &health.AuthError{Provider: s.provider, Err: fmt.Errorf("persist new tokens: %w", err)}
	}

	s.logger.Info("Refreshed access token", "expiry", token.Expiry)
	return token, nil
}
