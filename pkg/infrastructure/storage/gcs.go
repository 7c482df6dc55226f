package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// ErrNotFound is returned by Read when the object does not exist.
var ErrNotFound = errors.New("object not found")

// GCSStore reads and writes archive objects in Google Cloud Storage.
type GCSStore struct {
	Client *storage.Client
	// ContentType is set on every written object; empty means application/json.
	ContentType string
}

func (a *GCSStore) Write(ctx context.Context, bucketName, objectName string, data []byte) error {
	wc := a.Client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = a.ContentType
	if wc.ContentType == "" {
		wc.ContentType = "application/json"
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("write gs://%s/%s: %w", bucketName, objectName, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", bucketName, objectName, err)
	}
	return nil
}

func (a *GCSStore) Read(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	rc, err := a.Client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("gs://%s/%s: %w", bucketName, objectName, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", bucketName, objectName, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
