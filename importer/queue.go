package importer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// queueCapacity bounds how many import runs may wait behind the worker.
const queueCapacity = 64

// Task identifies one queued import run. It carries identifiers only; the
// worker reloads the current wiki and user records when the task is picked
// up, so state changes made while the task waited are honored.
type Task struct {
	WikiID string
	UserID string
}

// Runner executes one import run for a task.
type Runner func(ctx context.Context, task Task) error

// Queue feeds import tasks to a single worker goroutine. One worker is
// deliberate: runs against the same destination must not interleave, and
// runs against different destinations share the source wiki's goodwill.
type Queue struct {
	tasks  chan Task
	runner Runner
	logger *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewQueue creates a queue that hands tasks to runner.
func NewQueue(runner Runner, logger *slog.Logger) *Queue {
	return &Queue{
		tasks:  make(chan Task, queueCapacity),
		runner: runner,
		logger: logger,
	}
}

// Start launches the worker. ctx cancellation stops the worker after the
// task in progress finishes.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for task := range q.tasks {
			if ctx.Err() != nil {
				q.logger.Warn("Dropping queued import, shutting down",
					"wiki_id", task.WikiID)
				continue
			}
			q.logger.Info("Starting queued import",
				"wiki_id", task.WikiID, "user_id", task.UserID)
			if err := q.runner(ctx, task); err != nil {
				q.logger.Error("Import run failed",
					"wiki_id", task.WikiID, "error", err)
				continue
			}
			q.logger.Info("Import run finished", "wiki_id", task.WikiID)
		}
	}()
}

// Enqueue schedules a task without blocking. A full queue is reported to the
// caller rather than waited out.
func (q *Queue) Enqueue(task Task) error {
	select {
	case q.tasks <- task:
		return nil
	default:
		return errors.New("import queue is full")
	}
}

// Close stops accepting tasks and waits for the worker to drain.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.tasks)
	})
	q.wg.Wait()
}
