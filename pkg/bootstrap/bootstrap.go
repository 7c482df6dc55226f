package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/healthsync/server/pkg/infrastructure/credentials"
	"github.com/healthsync/server/pkg/infrastructure/oauth"
	infrapubsub "github.com/healthsync/server/pkg/infrastructure/pubsub"
	infrastorage "github.com/healthsync/server/pkg/infrastructure/storage"
)

type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// Service holds initialized dependencies
type Service struct {
	Config      *Config
	Credentials oauth.CredentialStore
	// Store is nil when no archive bucket is configured.
	Store  BlobStore
	Pub    Publisher
	Logger *slog.Logger

	closers []func() error
}

// NewService initializes the credential store and the optional cloud clients.
func NewService(ctx context.Context, cfg *Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Service{Config: cfg, Logger: logger}
	logger = logger.With("component", "bootstrap")
	logger.Info("Initializing service", "project_id", cfg.ProjectID, "credential_store", cfg.CredentialStore)

	switch cfg.CredentialStore {
	case CredentialStoreFirestore:
		fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			logger.Error("Firestore init failed", "error", err)
			return nil, fmt.Errorf("firestore init: %w", err)
		}
		svc.closers = append(svc.closers, fsClient.Close)
		svc.Credentials = credentials.NewFirestoreStore(fsClient)
	default:
		svc.Credentials = credentials.NewEnvFileStore(cfg.CredentialFile)
	}

	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			svc.Close()
			logger.Error("PubSub init failed", "error", err)
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		svc.closers = append(svc.closers, psClient.Close)
		svc.Pub = &infrapubsub.PubSubAdapter{Client: psClient}
		logger.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)", "topic", cfg.SyncTopic)
	} else {
		svc.Pub = &infrapubsub.LogPublisher{Logger: svc.Logger}
		logger.Info("Pub/Sub: MOCK (LogPublisher)")
	}

	if cfg.ArchiveBucket != "" {
		gcsClient, err := storage.NewClient(ctx)
		if err != nil {
			svc.Close()
			logger.Error("Storage init failed", "error", err)
			return nil, fmt.Errorf("storage init: %w", err)
		}
		svc.closers = append(svc.closers, gcsClient.Close)
		svc.Store = &infrastorage.GCSStore{Client: gcsClient}
		logger.Info("Archive enabled", "bucket", cfg.ArchiveBucket)
	}

	return svc, nil
}

// Close releases the cloud clients.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
