// Command techdigest builds the weekly tech events digest and emails it to
// one recipient. It is meant to be triggered once a week by cron or a CI
// schedule; configuration comes from the environment.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dmitrymomot/techdigest/internal/app"
	"github.com/dmitrymomot/techdigest/pkg/logger"
)

const (
	banner       = "Weekly Tech Events Email Notifier"
	runLayout    = "2006-01-02 15:04:05"
	flushTimeout = 2 * time.Second
)

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred cleanups finish before os.Exit.
func run() int {
	rule := strings.Repeat("=", len(banner))
	fmt.Println(rule)
	fmt.Println(banner)
	fmt.Println(rule)
	fmt.Printf("Running at: %s\n\n", time.Now().Format(runLayout))

	cfg, err := app.LoadConfig()
	if err != nil {
		logger.New(logger.Config{}).Error("configuration error", slog.String("error", err.Error()))
		return app.ExitCode(err)
	}

	log := logger.NewWithSentry(cfg.Log, logger.RunIDExtractor())
	defer logger.Flush(flushTimeout)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfg, app.WithLogger(log))
	if err != nil {
		log.Error("failed to initialize", slog.String("error", err.Error()))
		return app.ExitCode(err)
	}

	if err := a.Run(ctx); err != nil {
		log.ErrorContext(ctx, "digest run failed", slog.String("error", err.Error()))
		return app.ExitCode(err)
	}

	log.Info("digest run completed")
	return 0
}
