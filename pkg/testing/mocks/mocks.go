package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/healthsync/server/pkg/domain/health"
	"github.com/healthsync/server/pkg/infrastructure/oauth"
)

// --- Mock Credential Store ---
type MemoryCredentialStore struct {
	mu      sync.Mutex
	Tokens  map[string]*oauth.Token
	LoadErr error
	SaveErr error
	Saves   int
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{Tokens: make(map[string]*oauth.Token)}
}

func (m *MemoryCredentialStore) Load(ctx context.Context, provider string) (*oauth.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	tok, ok := m.Tokens[provider]
	if !ok {
		return &oauth.Token{}, nil
	}
	cp := *tok
	return &cp, nil
}

func (m *MemoryCredentialStore) Save(ctx context.Context, provider string, token *oauth.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := *token
	m.Tokens[provider] = &cp
	m.Saves++
	return nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// --- Mock Storage ---
type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte) error
	ReadFunc  func(ctx context.Context, bucket, object string) ([]byte, error)
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}

func (m *MockBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, bucket, object)
	}
	return nil, fmt.Errorf("object %s/%s not found", bucket, object)
}

// --- Mock Fitbit Fetcher ---
type MockMetricsFetcher struct {
	FetchFunc func(ctx context.Context, date string) (*health.DailyMetrics, error)
}

func (m *MockMetricsFetcher) Fetch(ctx context.Context, date string) (*health.DailyMetrics, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, date)
	}
	return &health.DailyMetrics{Date: date}, nil
}

// --- Mock Meal Locator ---
type MockMealLocator struct {
	LocateAndClassifyFunc func(ctx context.Context, date string) (*health.MealRecord, error)
}

func (m *MockMealLocator) LocateAndClassify(ctx context.Context, date string) (*health.MealRecord, error) {
	if m.LocateAndClassifyFunc != nil {
		return m.LocateAndClassifyFunc(ctx, date)
	}
	return health.NewMealRecord(), nil
}

// --- Mock Record Writer ---
type MockRecordWriter struct {
	UpsertFunc func(ctx context.Context, date string, rec health.MergedRecord) (health.UpsertOutcome, error)
}

func (m *MockRecordWriter) Upsert(ctx context.Context, date string, rec health.MergedRecord) (health.UpsertOutcome, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, date, rec)
	}
	return health.OutcomeCreated, nil
}

// --- Mock Food Describer ---
type MockFoodDescriber struct {
	DescribeFunc func(ctx context.Context, image []byte, mimeType string) (string, bool, error)
}

func (m *MockFoodDescriber) Describe(ctx context.Context, image []byte, mimeType string) (string, bool, error) {
	if m.DescribeFunc != nil {
		return m.DescribeFunc(ctx, image, mimeType)
	}
	return "", false, nil
}
