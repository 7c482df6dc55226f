// Package meals finds the day's food photos, slots them into meals and
// describes what was eaten.
package meals

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/healthsync/server/pkg/domain/health"
)

// PhotoSource lists and downloads candidate photos.
type PhotoSource interface {
	ListImages(ctx context.Context) ([]health.Photo, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// FoodDescriber names the food in an image; ok is false when there is none.
type FoodDescriber interface {
	Describe(ctx context.Context, image []byte, mimeType string) (string, bool, error)
}

// SlotFor maps a local hour to its meal window: [6,11) breakfast,
// [11,16) lunch, [17,23) dinner. Other hours have no slot.
func SlotFor(hour int) (health.MealSlot, bool) {
	switch {
	case hour >= 6 && hour < 11:
		return health.Breakfast, true
	case hour >= 11 && hour < 16:
		return health.Lunch, true
	case hour >= 17 && hour < 23:
		return health.Dinner, true
	default:
		return "", false
	}
}

// LocatedPhoto is a photo taken on the target date inside a meal window.
type LocatedPhoto struct {
	Photo   health.Photo
	Capture health.CaptureTime
	Slot    health.MealSlot

	content *cachedContent
}

// cachedContent downloads a photo at most once, remembering failures too.
type cachedContent struct {
	source PhotoSource
	fileID string
	done   bool
	data   []byte
	err    error
}

func (c *cachedContent) get(ctx context.Context) ([]byte, error) {
	if !c.done {
		c.data, c.err = c.source.Download(ctx, c.fileID)
		c.done = true
	}
	return c.data, c.err
}

// Locator builds the MealRecord of a date.
type Locator struct {
	source    PhotoSource
	describer FoodDescriber
	loc       *time.Location
	logger    *slog.Logger
}

func NewLocator(source PhotoSource, describer FoodDescriber, loc *time.Location, logger *slog.Logger) *Locator {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{
		source:    source,
		describer: describer,
		loc:       loc,
		logger:    logger.With("component", "meals"),
	}
}

// Locate returns the photos of date that fall in a meal window, ordered by capture time.
func (l *Locator) Locate(ctx context.Context, date string) ([]LocatedPhoto, error) {
	day, err := health.ParseDate(date, l.loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	photos, err := l.source.ListImages(ctx)
	if err != nil {
		return nil, err
	}

	var located []LocatedPhoto
	for _, p := range photos {
		content := &cachedContent{source: l.source, fileID: p.ID}
		capture, ok := ResolveCaptureTime(ctx, p, content.get, l.loc)
		if !ok {
			l.logger.Warn("No capture time for photo, skipping", "photo", p.Name, "id", p.ID)
			continue
		}
		if !sameDay(capture.Time, day) {
			continue
		}
		if capture.LowConfidence() {
			l.logger.Warn("Using upload time, not capture time", "photo", p.Name, "time", capture.Time.Format("15:04"))
		}

		slot, ok := SlotFor(capture.Time.Hour())
		if !ok {
			l.logger.Info("Photo taken outside meal times", "photo", p.Name, "time", capture.Time.Format("15:04"))
			continue
		}

		located = append(located, LocatedPhoto{Photo: p, Capture: capture, Slot: slot, content: content})
	}

	sort.SliceStable(located, func(i, j int) bool {
		return located[i].Capture.Time.Before(located[j].Capture.Time)
	})

	l.logger.Info("Located meal photos", "date", date, "listed", len(photos), "located", len(located))
	return located, nil
}

// LocateAndClassify describes every located photo and collects the food per slot.
// A photo that fails to download or describe is logged and skipped.
func (l *Locator) LocateAndClassify(ctx context.Context, date string) (*health.MealRecord, error) {
	located, err := l.Locate(ctx, date)
	if err != nil {
		return nil, err
	}

	record := health.NewMealRecord()
	for _, lp := range located {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		desc, ok, err := l.describe(ctx, lp)
		if err != nil {
			if health.IsFatal(err) {
				return nil, err
			}
			l.logger.Warn("Skipping photo", "error", err)
			continue
		}
		if !ok {
			l.logger.Info("No food detected", "photo", lp.Photo.Name)
			continue
		}

		record.Add(lp.Slot, desc)
		l.logger.Info("Classified meal photo",
			"slot", lp.Slot,
			"time", lp.Capture.Time.Format("15:04"),
			"source", lp.Capture.Source,
			"food", desc,
		)
	}
	return record, nil
}

func (l *Locator) describe(ctx context.Context, lp LocatedPhoto) (string, bool, error) {
	content := lp.content
	if content == nil {
		content = &cachedContent{source: l.source, fileID: lp.Photo.ID}
	}

	data, err := content.get(ctx)
	if err != nil {
		if health.IsFatal(err) {
			return "", false, err
		}
		return "", false, &health.ClassificationError{PhotoID: lp.Photo.ID, Name: lp.Photo.Name, Err: fmt.Errorf("download: %w", err)}
	}

	desc, ok, err := l.describer.Describe(ctx, data, lp.Photo.MimeType)
	if err != nil {
		return "", false, &health.ClassificationError{PhotoID: lp.Photo.ID, Name: lp.Photo.Name, Err: err}
	}
	return desc, ok, nil
}

func sameDay(t, day time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
