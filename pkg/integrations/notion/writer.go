package notion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/healthsync/server/pkg/domain/health"
)

// Writer upserts one page per date into the health database.
type Writer struct {
	client     *Client
	databaseID string
	logger     *slog.Logger
}

func NewWriter(client *Client, databaseID string) *Writer {
	return &Writer{
		client:     client,
		databaseID: databaseID,
		logger:     client.logger,
	}
}

// FindByDate returns the pages whose Date equals date.
func (w *Writer) FindByDate(ctx context.Context, date string) ([]Page, error) {
	return w.client.QueryDatabase(ctx, w.databaseID, QueryRequest{
		Filter: &Filter{Property: PropDate, Date: &DateFilter{Equals: date}},
	})
}

// Upsert updates the first page dated date, or creates one.
// Failures are returned as *health.WriteError unless they are auth failures.
func (w *Writer) Upsert(ctx context.Context, date string, rec health.MergedRecord) (health.UpsertOutcome, error) {
	props := BuildProperties(date, rec)

	existing, err := w.FindByDate(ctx, date)
	if err != nil {
		return "", w.fail(date, fmt.Errorf("query existing entry: %w", err))
	}

	if len(existing) > 0 {
		if len(existing) > 1 {
			w.logger.Warn("Several entries share a date, updating the first", "date", date, "count", len(existing))
		}
		if _, err := w.client.UpdatePage(ctx, existing[0].ID, props); err != nil {
			return "", w.fail(date, fmt.Errorf("update page %s: %w", existing[0].ID, err))
		}
		w.logger.Info("Updated entry", "date", date, "page_id", existing[0].ID, "properties", len(props))
		return health.OutcomeUpdated, nil
	}

	page, err := w.client.CreatePage(ctx, w.databaseID, props)
	if err != nil {
		return "", w.fail(date, fmt.Errorf("create page: %w", err))
	}
	w.logger.Info("Created entry", "date", date, "page_id", page.ID, "properties", len(props))
	return health.OutcomeCreated, nil
}

func (w *Writer) fail(date string, err error) error {
	if health.IsFatal(err) {
		return err
	}
	return &health.WriteError{Date: date, Err: err}
}
