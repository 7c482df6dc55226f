package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/healthsync/server/pkg/infrastructure/sentry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	defer sentry.RecoverAndCapture(slog.Default())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		return 1
	}
	return 0
}
