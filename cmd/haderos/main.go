package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/haderos-erp/haderos-core/internal/app"
	"github.com/haderos-erp/haderos-core/internal/learning"
	"github.com/haderos-erp/haderos-core/internal/platform/cache"
	"github.com/haderos-erp/haderos-core/internal/platform/db"
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

	logger := app.NewLogger(cfg)

	params := app.Params{Config: cfg, Logger: logger}

	var archive *learning.PGArchive
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		params.Pool = pool
		archive = learning.NewPGArchive(pool)
	}

	if cfg.RedisAddr != "" {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		params.Redis = redisClient
	}

	application, err := app.New(params)
	if err != nil {
		logger.Error("build application", slog.Any("error", err))
		os.Exit(1)
	}
	application.Start(ctx)

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      app.NewRouter(application),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.AppAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Task handlers need the live module state, so the queue consumer runs
	// here rather than in the worker binary.
	if cfg.RedisAddr != "" {
		worker, err := jobs.NewWorker(jobs.WorkerConfig{
			RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
			Logger:    logger,
			Handlers: &jobs.Handlers{
				Logger:    logger,
				LiveShop:  application.LiveShop,
				Inventory: application.Inventory,
				Learning:  application.Learning,
				Archive:   archive,
			},
		})
		if err != nil {
			logger.Error("init worker", slog.Any("error", err))
			os.Exit(1)
		}
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("runtime", slog.Any("error", err))
		os.Exit(1)
	}
	application.Wait()
}
