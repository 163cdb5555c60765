package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"viola-chatbot/internal/logger"

	"github.com/go-co-op/gocron"
	"github.com/hibiken/asynq"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RebuildScheduler enqueues a rebuild task on a cron schedule.
type RebuildScheduler struct {
	scheduler *gocron.Scheduler
	enqueuer  Enqueuer
	corpusDir string
}

func NewRebuildScheduler(cronExpr string, enqueuer Enqueuer, corpusDir string) (*RebuildScheduler, error) {
	r := &RebuildScheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		enqueuer:  enqueuer,
		corpusDir: corpusDir,
	}
	r.scheduler.SingletonModeAll()

	if _, err := r.scheduler.Cron(cronExpr).Do(r.enqueue); err != nil {
		return nil, fmt.Errorf("invalid reindex schedule %q: %w", cronExpr, err)
	}
	return r, nil
}

func (r *RebuildScheduler) Start() {
	r.scheduler.StartAsync()
	_, next := r.scheduler.NextRun()
	logger.Info("Scheduled index rebuilds enabled", "next_run", next)
}

func (r *RebuildScheduler) Stop() {
	r.scheduler.Stop()
}

func (r *RebuildScheduler) enqueue() {
	task, err := NewRebuildIndexTask(r.corpusDir, "schedule")
	if err != nil {
		logger.Error("Failed to create scheduled rebuild task", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := r.enqueuer.EnqueueContext(ctx, task)
	switch {
	case errors.Is(err, asynq.ErrDuplicateTask):
		logger.Info("Scheduled rebuild skipped, one is already pending")
	case err != nil:
		logger.Error("Failed to enqueue scheduled rebuild", "error", err)
	default:
		logger.Info("Scheduled rebuild enqueued", "task_id", info.ID)
	}
}
