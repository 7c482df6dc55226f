// Package pipeline drives the daily sync: fetch metrics, classify meals,
// merge, upsert, then hand the written day to the configured sinks.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/healthsync/server/pkg/domain/health"
	"github.com/healthsync/server/pkg/pacing"
)

// DefaultDayDelay is the pause between two dates of a backfill.
const DefaultDayDelay = 5 * time.Second

type MetricsFetcher interface {
	Fetch(ctx context.Context, date string) (*health.DailyMetrics, error)
}

type MealLocator interface {
	LocateAndClassify(ctx context.Context, date string) (*health.MealRecord, error)
}

type RecordWriter interface {
	Upsert(ctx context.Context, date string, rec health.MergedRecord) (health.UpsertOutcome, error)
}

// Sink receives every day that was written successfully.
// Sink failures are logged and never change the outcome of the day.
type Sink interface {
	Deliver(ctx context.Context, day DayResult) error
}

// DayResult is the outcome of syncing one date.
type DayResult struct {
	RunID   string
	Date    string
	Record  health.MergedRecord
	Outcome health.UpsertOutcome
	Err     error
}

type Syncer struct {
	fetcher  MetricsFetcher
	meals    MealLocator
	writer   RecordWriter
	sinks    []Sink
	dayDelay time.Duration
	sleep    pacing.SleepFunc
	onDay    func(DayResult)
	logger   *slog.Logger
}

type Option func(*Syncer)

// WithFetcher enables the metrics source.
func WithFetcher(f MetricsFetcher) Option {
	return func(s *Syncer) { s.fetcher = f }
}

// WithMeals enables the photo source.
func WithMeals(m MealLocator) Option {
	return func(s *Syncer) { s.meals = m }
}

func WithSinks(sinks ...Sink) Option {
	return func(s *Syncer) { s.sinks = append(s.sinks, sinks...) }
}

func WithDayDelay(d time.Duration) Option {
	return func(s *Syncer) { s.dayDelay = d }
}

func WithSleep(fn pacing.SleepFunc) Option {
	return func(s *Syncer) { s.sleep = fn }
}

// WithProgress registers a callback invoked after every date.
func WithProgress(fn func(DayResult)) Option {
	return func(s *Syncer) { s.onDay = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// NewSyncer creates a Syncer writing through writer. Sources left unset are
// skipped; the merge still produces a record for the date.
func NewSyncer(writer RecordWriter, opts ...Option) *Syncer {
	s := &Syncer{
		writer:   writer,
		dayDelay: DefaultDayDelay,
		sleep:    pacing.Sleep,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "pipeline")
	return s
}

// SyncDate runs the full pipeline for a single date under a fresh run ID.
func (s *Syncer) SyncDate(ctx context.Context, date string) DayResult {
	runID := uuid.NewString()
	day := s.syncDate(ctx, s.logger.With("run_id", runID), runID, date)
	if s.onDay != nil {
		s.onDay(day)
	}
	return day
}

// Run syncs every date of r in order, pausing between dates. A failed date is
// counted and the batch continues; an auth failure or cancellation aborts it
// and is returned together with the partial summary.
func (s *Syncer) Run(ctx context.Context, r DateRange) (Summary, error) {
	dates := r.Dates()
	summary := Summary{RunID: uuid.NewString(), Start: r.StartDate(), End: r.EndDate()}
	logger := s.logger.With("run_id", summary.RunID)
	logger.Info("Starting sync run", "start", summary.Start, "end", summary.End, "days", len(dates))

	for i, date := range dates {
		day := s.syncDate(ctx, logger, summary.RunID, date)
		summary.add(day)
		if s.onDay != nil {
			s.onDay(day)
		}

		if day.Err != nil && (health.IsFatal(day.Err) || ctx.Err() != nil) {
			summary.Aborted = true
			logger.Error("Aborting sync run", "date", date, "error", day.Err)
			return summary, day.Err
		}

		if i < len(dates)-1 {
			if err := s.sleep(ctx, s.dayDelay); err != nil {
				summary.Aborted = true
				return summary, err
			}
		}
	}

	logger.Info("Sync run complete",
		"created", summary.Created,
		"updated", summary.Updated,
		"errored", summary.Errored,
	)
	return summary, nil
}

func (s *Syncer) syncDate(ctx context.Context, logger *slog.Logger, runID, date string) DayResult {
	day := DayResult{RunID: runID, Date: date}
	logger = logger.With("date", date)

	var metrics *health.DailyMetrics
	if s.fetcher != nil {
		m, err := s.fetcher.Fetch(ctx, date)
		if err != nil {
			day.Err = fmt.Errorf("fetch metrics for %s: %w", date, err)
			logger.Error("Metrics fetch failed", "error", err)
			return day
		}
		metrics = m
	}

	var meals *health.MealRecord
	if s.meals != nil {
		rec, err := s.meals.LocateAndClassify(ctx, date)
		switch {
		case err == nil:
			meals = rec
		case health.IsFatal(err) || ctx.Err() != nil:
			day.Err = fmt.Errorf("classify meals for %s: %w", date, err)
			return day
		default:
			logger.Warn("Meal classification unavailable, writing metrics only", "error", err)
		}
	}

	day.Record = health.Merge(metrics, meals)
	outcome, err := s.writer.Upsert(ctx, date, day.Record)
	if err != nil {
		day.Err = err
		logger.Error("Upsert failed", "error", err)
		return day
	}
	day.Outcome = outcome
	logger.Info("Day synced", "outcome", outcome, "food_processed", day.Record.FoodProcessed())

	for _, sink := range s.sinks {
		if err := sink.Deliver(ctx, day); err != nil {
			logger.Warn("Sink delivery failed", "sink", fmt.Sprintf("%T", sink), "error", err)
		}
	}
	return day
}
