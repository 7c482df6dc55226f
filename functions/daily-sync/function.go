package dailysync

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/healthsync/server/pkg/bootstrap"
	"github.com/healthsync/server/pkg/domain/health"
	"github.com/healthsync/server/pkg/framework"
	"github.com/healthsync/server/pkg/infrastructure/sentry"
	"github.com/healthsync/server/pkg/pipeline"
)

const serviceName = "daily-sync"

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.HTTP("DailySync", DailySync)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		cfg, err := bootstrap.LoadConfig()
		if err != nil {
			svcErr = err
			slog.Error("Failed to load configuration", "error", err)
			return
		}
		logger := bootstrap.InitLogger(serviceName, bootstrap.LogFormatJSON)
		if err := sentry.Init(sentry.Config{
			DSN:         cfg.SentryDSN,
			Environment: cfg.SentryEnvironment,
			ServerName:  serviceName,
		}, logger); err != nil {
			logger.Warn("Continuing without Sentry", "error", err)
		}

		svc, svcErr = bootstrap.NewService(ctx, cfg, logger)
		if svcErr != nil {
			slog.Error("Failed to initialize service", "error", svcErr)
		}
	})
	return svc, svcErr
}

// DailySync syncs yesterday, or the date given as ?date=YYYY-MM-DD.
// ?no_food=true and ?no_fitbit=true disable a source.
func DailySync(w http.ResponseWriter, r *http.Request) {
	defer sentry.RecoverAndCapture(slog.Default())

	s, err := initService(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("service init failed: %v", err), http.StatusInternalServerError)
		return
	}
	framework.WrapHTTP(serviceName, s, syncHandler)(w, r)
	sentry.Flush(2 * time.Second)
}

func syncHandler(ctx context.Context, r *http.Request, fwCtx *framework.FrameworkContext) (interface{}, error) {
	cfg := fwCtx.Service.Config
	date, err := requestDate(r, time.Now().In(cfg.Location))
	if err != nil {
		return nil, framework.BadRequest(err)
	}
	src := requestSources(r)

	syncer, closeFn, err := pipeline.NewFromService(ctx, fwCtx.Service, src, pipeline.WithLogger(fwCtx.Logger))
	if err != nil {
		return nil, err
	}
	defer closeFn()

	day := syncer.SyncDate(ctx, date)
	outputs := map[string]interface{}{
		"date":           date,
		"run_id":         day.RunID,
		"outcome":        day.Outcome,
		"food_processed": day.Record.FoodProcessed(),
		"meal_photos":    day.Record.Meals.Count(),
	}
	return outputs, day.Err
}

func requestDate(r *http.Request, now time.Time) (string, error) {
	date := r.URL.Query().Get("date")
	if date == "" {
		return pipeline.Yesterday(now).Format(health.DateLayout), nil
	}
	if _, err := health.ParseDate(date, now.Location()); err != nil {
		return "", fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", date)
	}
	return date, nil
}

func requestSources(r *http.Request) bootstrap.Sources {
	q := r.URL.Query()
	flag := func(name string) bool {
		v, _ := strconv.ParseBool(q.Get(name))
		return v
	}
	return bootstrap.Sources{Fitbit: !flag("no_fitbit"), Food: !flag("no_food")}
}
