// The worker binary runs only the cron scheduler; it enqueues the standing
// maintenance tasks which the application process consumes.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/haderos-erp/haderos-core/internal/app"
	"github.com/haderos-erp/haderos-core/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.RedisAddr == "" {
		slog.Default().Error("REDIS_ADDR required for the scheduler")
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	cron, err := jobs.DefaultCron()
	if err != nil {
		logger.Error("build cron tasks", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler, err := jobs.NewScheduler(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, cron)
	if err != nil {
		logger.Error("init scheduler", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("scheduler running", "entries", len(cron))
	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler run", slog.Any("error", err))
		os.Exit(1)
	}
}
