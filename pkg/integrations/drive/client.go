// Package drive lists and downloads the food photos kept in a Google Drive folder.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/healthsync/server/pkg/domain/health"
)

// MaxPhotoBytes caps a single download.
const MaxPhotoBytes = 20 << 20

const listFields = "nextPageToken, files(id, name, mimeType, createdTime, modifiedTime, imageMediaMetadata, properties, appProperties)"

// Client reads one Drive folder.
type Client struct {
	svc      *drivev3.Service
	folderID string
	logger   *slog.Logger
}

// NewClient creates a Drive client over httpClient, which carries the Google OAuth token.
// Extra options (endpoint overrides in tests) are appended.
func NewClient(ctx context.Context, httpClient *http.Client, folderID string, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	if folderID == "" {
		return nil, errors.New("drive folder id is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := drivev3.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Client{
		svc:      svc,
		folderID: folderID,
		logger:   logger.With("component", "drive"),
	}, nil
}

// Query is the Drive search expression selecting the folder's images.
func (c *Client) Query() string {
	folder := strings.ReplaceAll(c.folderID, "'", `\'`)
	return fmt.Sprintf("'%s' in parents and mimeType contains 'image/' and trashed = false", folder)
}

// ListImages returns every image in the folder, newest upload first.
func (c *Client) ListImages(ctx context.Context) ([]health.Photo, error) {
	var photos []health.Photo

	call := c.svc.Files.List().
		Q(c.Query()).
		OrderBy("createdTime desc").
		PageSize(100).
		Fields(listFields)

	err := call.Pages(ctx, func(page *drivev3.FileList) error {
		for _, f := range page.Files {
			photos = append(photos, toPhoto(f))
		}
		return nil
	})
	if err != nil {
		return nil, wrapError("list photos", err)
	}

	c.logger.Info("Listed Drive photos", "folder", c.folderID, "count", len(photos))
	return photos, nil
}

// Download returns the file content.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, wrapError("download "+fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxPhotoBytes+1))
	if err != nil {
		return nil, &health.TransportError{Op: "download " + fileID, Err: err}
	}
	if len(data) > MaxPhotoBytes {
		return nil, fmt.Errorf("photo %s exceeds %d bytes", fileID, MaxPhotoBytes)
	}
	return data, nil
}

func toPhoto(f *drivev3.File) health.Photo {
	p := health.Photo{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
	}
	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		p.CreatedTime = t
	}
	if f.ImageMediaMetadata != nil {
		p.MediaTime = f.ImageMediaMetadata.Time
	}
	if len(f.Properties) > 0 || len(f.AppProperties) > 0 {
		p.Metadata = make(map[string]string, len(f.Properties)+len(f.AppProperties))
		for k, v := range f.AppProperties {
			p.Metadata[k] = v
		}
		// Public properties win over app-private ones.
		for k, v := range f.Properties {
			p.Metadata[k] = v
		}
	}
	return p
}

// wrapError keeps auth failures fatal and tags the rest with the operation.
func wrapError(op string, err error) error {
	if health.IsFatal(err) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: drive api status %d: %w", op, apiErr.Code, err)
	}
	return &health.TransportError{Op: op, Err: err}
}
