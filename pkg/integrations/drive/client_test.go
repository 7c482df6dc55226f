package drive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/healthsync/server/pkg/domain/health"
)

func newFakeDrive(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/files":
			queries = append(queries, r.URL.Query().Get("q"))
			assert.Equal(t, "createdTime desc", r.URL.Query().Get("orderBy"))
			if r.URL.Query().Get("pageToken") == "" {
				io.WriteString(w, `{"nextPageToken":"p2","files":[
					{"id":"a","name":"IMG_20250720_081500.jpg","mimeType":"image/jpeg","createdTime":"2025-07-20T09:00:00Z",
					 "imageMediaMetadata":{"time":"2025:07:20 08:15:00","width":4000}}]}`)
				return
			}
			io.WriteString(w, `{"files":[
				{"id":"b","name":"lunch.png","mimeType":"image/png","createdTime":"2025-07-20T11:30:00.000Z",
				 "properties":{"captureTime":"2025-07-20T12:30:00+02:00"},"appProperties":{"captureTime":"ignored","source":"phone"}}]}`)
		case "/files/a":
			assert.Equal(t, "media", r.URL.Query().Get("alt"))
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte{0xFF, 0xD8, 0xFF})
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":{"code":404,"message":"File not found"}}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &queries
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), srv.Client(), "folder-1", nil, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return c
}

func TestListImages_FollowsPages(t *testing.T) {
	srv, queries := newFakeDrive(t)
	c := newTestClient(t, srv)

	photos, err := c.ListImages(context.Background())
	require.NoError(t, err)

	require.Len(t, photos, 2)
	assert.Equal(t, []string{c.Query(), c.Query()}, *queries)
	assert.Equal(t, "'folder-1' in parents and mimeType contains 'image/' and trashed = false", c.Query())

	assert.Equal(t, "a", photos[0].ID)
	assert.Equal(t, "2025:07:20 08:15:00", photos[0].MediaTime)
	assert.True(t, photos[0].CreatedTime.Equal(time.Date(2025, 7, 20, 9, 0, 0, 0, time.UTC)))

	assert.Equal(t, "lunch.png", photos[1].Name)
	assert.Equal(t, "2025-07-20T12:30:00+02:00", photos[1].Metadata["captureTime"])
	assert.Equal(t, "phone", photos[1].Metadata["source"])
}

func TestDownload(t *testing.T) {
	srv, _ := newFakeDrive(t)
	c := newTestClient(t, srv)

	data, err := c.Download(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, data)

	_, err = c.Download(context.Background(), "missing")
	require.Error(t, err)
	var transportErr *health.TransportError
	assert.False(t, errors.As(err, &transportErr), "API errors are not transport errors")
}

func TestNewClient_RequiresFolder(t *testing.T) {
	_, err := NewClient(context.Background(), http.DefaultClient, "", nil)
	assert.Error(t, err)
}
