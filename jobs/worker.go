package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Worker wraps the Asynq server. It runs inside the application process so
// task handlers reach the live module state; only the cron Scheduler runs
// standalone.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Handlers  *Handlers
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Handlers == nil {
		return nil, errors.New("jobs: handlers required")
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskExpireCarts, cfg.Handlers.HandleExpireCarts)
	mux.HandleFunc(TaskReorderScan, cfg.Handlers.HandleReorderScan)
	mux.HandleFunc(TaskLearningDigest, cfg.Handlers.HandleLearningDigest)
	return &Worker{server: srv, mux: mux, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("jobs: worker not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// Scheduler enqueues the standing cron tasks. It holds no application state
// and can run as its own process.
type Scheduler struct {
	scheduler *asynq.Scheduler
}

// NewScheduler constructs the cron scheduler.
func NewScheduler(redisOpts asynq.RedisClientOpt, cron []CronRegistration) (*Scheduler, error) {
	sched := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{Location: time.UTC})
	for _, entry := range cron {
		if entry.Spec == "" || entry.Task == nil {
			continue
		}
		if _, err := sched.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
			return nil, err
		}
	}
	return &Scheduler{scheduler: sched}, nil
}

// DefaultCron returns the standing schedule: carts every minute, reorder scan
// hourly, digest nightly.
func DefaultCron() ([]CronRegistration, error) {
	expire, err := NewExpireCartsTask(time.Now())
	if err != nil {
		return nil, err
	}
	reorder, err := NewReorderScanTask(time.Now())
	if err != nil {
		return nil, err
	}
	digest, err := NewLearningDigestTask(90)
	if err != nil {
		return nil, err
	}
	return []CronRegistration{
		{Spec: "* * * * *", Task: expire, Options: []asynq.Option{asynq.MaxRetry(1)}},
		{Spec: "0 * * * *", Task: reorder, Options: []asynq.Option{asynq.MaxRetry(3)}},
		{Spec: "0 2 * * *", Task: digest, Options: []asynq.Option{asynq.MaxRetry(3)}},
	}, nil
}

// Run starts the scheduler until context cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.scheduler.Shutdown()
	return ctx.Err()
}
