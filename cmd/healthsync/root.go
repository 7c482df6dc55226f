package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthsync/server/pkg/bootstrap"
	"github.com/healthsync/server/pkg/infrastructure/sentry"
)

var version = "dev"

var (
	logFormat string
	noFood    bool
	noFitbit  bool
)

var rootCmd = &cobra.Command{
	Use:           "healthsync",
	Short:         "healthsync copies Fitbit metrics and meal photos into a Notion database",
	Long:          "healthsync pulls daily Fitbit metrics and food photos from a Google Drive folder, describes the food with Gemini and keeps one Notion entry per date.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", bootstrap.LogFormatText, "Log format: text (stderr) or json (stdout)")
	rootCmd.PersistentFlags().BoolVar(&noFood, "no-food", false, "Skip the photo source")
	rootCmd.PersistentFlags().BoolVar(&noFitbit, "no-fitbit", false, "Skip the Fitbit source")
}

func sources() bootstrap.Sources {
	return bootstrap.Sources{Fitbit: !noFitbit, Food: !noFood}
}

// setup loads the configuration, the logger, Sentry and the service clients.
// The caller closes the returned service.
func setup(cmd *cobra.Command) (*bootstrap.Service, error) {
	if logFormat != bootstrap.LogFormatText && logFormat != bootstrap.LogFormatJSON {
		return nil, fmt.Errorf("invalid --log-format %q (expected text or json)", logFormat)
	}
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := bootstrap.InitLogger("healthsync", logFormat)

	if err := sentry.Init(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     version,
		ServerName:  "healthsync-cli",
	}, logger); err != nil {
		logger.Warn("Continuing without Sentry", "error", err)
	}

	return bootstrap.NewService(cmd.Context(), cfg, logger)
}

// finish flushes Sentry and releases the service clients.
func finish(svc *bootstrap.Service) {
	sentry.Flush(2 * time.Second)
	if err := svc.Close(); err != nil {
		slog.Warn("Closing clients failed", "error", err)
	}
}

// captureDay reports a failed date to Sentry.
func captureDay(svc *bootstrap.Service, runID, date string, err error) {
	sentry.CaptureException(err, map[string]string{"date": date, "run_id": runID}, svc.Logger)
}
