package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/healthsync/server/pkg/domain/health"
)

// BlobStore is the object storage the archive writes to.
type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}

// ArchivedDay is the JSON document stored for every synced date.
type ArchivedDay struct {
	RunID    string               `json:"run_id"`
	Date     string               `json:"date"`
	Outcome  health.UpsertOutcome `json:"outcome"`
	SyncedAt time.Time            `json:"synced_at"`
	Record   health.MergedRecord  `json:"record"`
}

// Archiver keeps a copy of each merged record under daily/<date>.json.
type Archiver struct {
	store  BlobStore
	bucket string
	now    func() time.Time
}

func NewArchiver(store BlobStore, bucket string) *Archiver {
	return &Archiver{store: store, bucket: bucket, now: time.Now}
}

func ArchiveObject(date string) string {
	return fmt.Sprintf("daily/%s.json", date)
}

func (a *Archiver) Deliver(ctx context.Context, day DayResult) error {
	doc := ArchivedDay{
		RunID:    day.RunID,
		Date:     day.Date,
		Outcome:  day.Outcome,
		SyncedAt: a.now().UTC(),
		Record:   day.Record,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive for %s: %w", day.Date, err)
	}
	return a.store.Write(ctx, a.bucket, ArchiveObject(day.Date), data)
}

// Load reads back the archived document of date.
func (a *Archiver) Load(ctx context.Context, date string) (*ArchivedDay, error) {
	data, err := a.store.Read(ctx, a.bucket, ArchiveObject(date))
	if err != nil {
		return nil, err
	}
	var doc ArchivedDay
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode archive for %s: %w", date, err)
	}
	return &doc, nil
}
