// Package notion writes daily health records into a Notion database.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/healthsync/server/pkg/domain/health"
	httputil "github.com/healthsync/server/pkg/infrastructure/http"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	APIVersion     = "2022-06-28"
)

// Client is a minimal Notion REST client covering database queries, pages and schema.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient wraps an http.Client that already carries the integration token.
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With("component", "notion"),
	}
}

// RichText is a plain text run.
type RichText struct {
	Type string   `json:"type,omitempty"`
	Text TextSpan `json:"text"`
}

type TextSpan struct {
	Content string `json:"content"`
}

type DateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// PropertyValue is one page property; exactly one field is set when writing.
type PropertyValue struct {
	Type     string     `json:"type,omitempty"`
	Number   *float64   `json:"number,omitempty"`
	Date     *DateValue `json:"date,omitempty"`
	RichText []RichText `json:"rich_text,omitempty"`
	Title    []RichText `json:"title,omitempty"`
	Checkbox *bool      `json:"checkbox,omitempty"`
}

// PlainText concatenates the rich text or title runs.
func (v PropertyValue) PlainText() string {
	runs := v.RichText
	if len(runs) == 0 {
		runs = v.Title
	}
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.Text.Content)
	}
	return sb.String()
}

type Properties map[string]PropertyValue

type Page struct {
	ID         string     `json:"id"`
	Archived   bool       `json:"archived"`
	Properties Properties `json:"properties"`
}

type DateFilter struct {
	Equals string `json:"equals"`
}

type Filter struct {
	Property string      `json:"property"`
	Date     *DateFilter `json:"date,omitempty"`
}

type QueryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
}

type QueryResult struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// PropertySchema describes a database column as returned by the API.
type PropertySchema struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type Database struct {
	ID         string                    `json:"id"`
	Properties map[string]PropertySchema `json:"properties"`
}

// empty marshals as {} for column type configurations.
type empty struct{}

// ColumnUpdate is a column definition in a database update. A nil
// *ColumnUpdate in the update map removes that column.
type ColumnUpdate struct {
	Name     string `json:"name,omitempty"`
	Number   *empty `json:"number,omitempty"`
	RichText *empty `json:"rich_text,omitempty"`
	Checkbox *empty `json:"checkbox,omitempty"`
	Date     *empty `json:"date,omitempty"`
}

// NewColumn returns the update that creates or converts a column to the given type.
func NewColumn(columnType string) *ColumnUpdate {
	c := &ColumnUpdate{}
	switch columnType {
	case TypeNumber:
		c.Number = &empty{}
	case TypeRichText:
		c.RichText = &empty{}
	case TypeCheckbox:
		c.Checkbox = &empty{}
	case TypeDate:
		c.Date = &empty{}
	}
	return c
}

// doRequest sends a JSON request and decodes a 2xx body into out.
func (c *Client) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Notion-Version", APIVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if health.IsFatal(err) {
			return err
		}
		return &health.TransportError{Op: "notion " + method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if err := httputil.CheckResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// QueryDatabase returns all pages matching the request, following cursors.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q QueryRequest) ([]Page, error) {
	var pages []Page
	for {
		var result QueryResult
		if err := c.doRequest(ctx, http.MethodPost, "/databases/"+databaseID+"/query", q, &result); err != nil {
			return nil, err
		}
		pages = append(pages, result.Results...)
		if !result.HasMore || result.NextCursor == nil || *result.NextCursor == "" {
			return pages, nil
		}
		q.StartCursor = *result.NextCursor
	}
}

func (c *Client) CreatePage(ctx context.Context, databaseID string, props Properties) (*Page, error) {
	body := map[string]interface{}{
		"parent":     map[string]string{"database_id": databaseID},
		"properties": props,
	}
	var page Page
	if err := c.doRequest(ctx, http.MethodPost, "/pages", body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) UpdatePage(ctx context.Context, pageID string, props Properties) (*Page, error) {
	body := map[string]interface{}{"properties": props}
	var page Page
	if err := c.doRequest(ctx, http.MethodPatch, "/pages/"+pageID, body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var db Database
	if err := c.doRequest(ctx, http.MethodGet, "/databases/"+databaseID, nil, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

// UpdateDatabase applies column changes; nil entries delete the column.
func (c *Client) UpdateDatabase(ctx context.Context, databaseID string, columns map[string]*ColumnUpdate) (*Database, error) {
	body := map[string]interface{}{"properties": columns}
	var db Database
	if err := c.doRequest(ctx, http.MethodPatch, "/databases/"+databaseID, body, &db); err != nil {
		return nil, err
	}
	return &db, nil
}
