package pipeline

import (
	"context"
	"fmt"

	"github.com/healthsync/server/pkg/bootstrap"
	httputil "github.com/healthsync/server/pkg/infrastructure/http"
	"github.com/healthsync/server/pkg/infrastructure/oauth"
	"github.com/healthsync/server/pkg/integrations/drive"
	"github.com/healthsync/server/pkg/integrations/fitbit"
	"github.com/healthsync/server/pkg/integrations/gemini"
	"github.com/healthsync/server/pkg/integrations/notion"
	"github.com/healthsync/server/pkg/meals"
)

// NewTokenSource returns the refreshing token source of provider backed by the
// service's credential store.
func NewTokenSource(svc *bootstrap.Service, provider string) (*oauth.StoreTokenSource, error) {
	cfg, err := oauth.ProviderConfig(provider, svc.Config.OAuthClient(provider))
	if err != nil {
		return nil, err
	}
	return oauth.NewStoreTokenSource(svc.Credentials, provider, cfg, svc.Logger), nil
}

func NewFitbitClient(svc *bootstrap.Service) (*fitbit.Client, error) {
	source, err := NewTokenSource(svc, oauth.ProviderFitbit)
	if err != nil {
		return nil, err
	}
	return fitbit.NewClient(source,
		fitbit.WithCategoryDelay(svc.Config.FitbitCategoryDelay),
		fitbit.WithLogger(svc.Logger),
	), nil
}

// NewMealLocator builds the Drive + Gemini photo classifier. The returned
// close function releases the Gemini client.
func NewMealLocator(ctx context.Context, svc *bootstrap.Service) (*meals.Locator, func() error, error) {
	cfg := svc.Config
	source, err := NewTokenSource(svc, oauth.ProviderGoogle)
	if err != nil {
		return nil, nil, err
	}

	policy := httputil.DefaultRetryPolicy()
	driveClient, err := drive.NewClient(ctx, oauth.NewClient(source, policy, nil, svc.Logger), cfg.DriveFolderID, svc.Logger)
	if err != nil {
		return nil, nil, err
	}

	describer, err := gemini.NewDescriber(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, policy, svc.Logger)
	if err != nil {
		return nil, nil, err
	}

	return meals.NewLocator(driveClient, describer, cfg.Location, svc.Logger), describer.Close, nil
}

func NewNotionWriter(svc *bootstrap.Service) *notion.Writer {
	httpClient := oauth.NewStaticClient(svc.Config.NotionToken, httputil.DefaultRetryPolicy(), nil, svc.Logger)
	client := notion.NewClient(httpClient, notion.DefaultBaseURL, svc.Logger)
	return notion.NewWriter(client, svc.Config.NotionDatabaseID)
}

// Sinks returns the archive and event sinks enabled by the configuration.
func Sinks(svc *bootstrap.Service) []Sink {
	var sinks []Sink
	if svc.Store != nil && svc.Config.ArchiveBucket != "" {
		sinks = append(sinks, NewArchiver(svc.Store, svc.Config.ArchiveBucket))
	}
	if svc.Pub != nil && svc.Config.SyncTopic != "" {
		sinks = append(sinks, NewNotifier(svc.Pub, svc.Config.SyncTopic))
	}
	return sinks
}

// NewFromService wires a Syncer for the enabled sources. Call the returned
// close function when done.
func NewFromService(ctx context.Context, svc *bootstrap.Service, src bootstrap.Sources, opts ...Option) (*Syncer, func() error, error) {
	if err := svc.Config.Validate(src); err != nil {
		return nil, nil, err
	}

	closeFn := func() error { return nil }
	base := []Option{
		WithLogger(svc.Logger),
		WithDayDelay(svc.Config.DayDelay),
		WithSinks(Sinks(svc)...),
	}

	if src.Fitbit {
		client, err := NewFitbitClient(svc)
		if err != nil {
			return nil, nil, fmt.Errorf("fitbit: %w", err)
		}
		base = append(base, WithFetcher(client))
	}

	if src.Food {
		locator, closer, err := NewMealLocator(ctx, svc)
		if err != nil {
			return nil, nil, fmt.Errorf("meals: %w", err)
		}
		closeFn = closer
		base = append(base, WithMeals(locator))
	}

	return NewSyncer(NewNotionWriter(svc), append(base, opts...)...), closeFn, nil
}
