package grading

import (
	"context"
	"log/slog"
	"sync"
)

// Worker turns the fire-and-forget AI grading step into an explicit queue:
// the submission path enqueues an attempt id and returns immediately, worker
// goroutines dequeue and run the pass.
type Worker struct {
	orch *Orchestrator
	jobs chan string
	n    int
	log  *slog.Logger

	wg sync.WaitGroup
}

func NewWorker(orch *Orchestrator, queueSize, workers int, log *slog.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 128
	}
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{orch: orch, jobs: make(chan string, queueSize), n: workers, log: log}
}

// Enqueue schedules the AI pass for an attempt without blocking. It reports
// false when the queue is full; the caller treats that as a logged no-op,
// never as a submission failure.
func (w *Worker) Enqueue(attemptID string) bool {
	select {
	case w.jobs <- attemptID:
		return true
	default:
		return false
	}
}

// Start launches the worker goroutines. They drain the queue until ctx is
// cancelled; Wait blocks until they exit.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.n; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-w.jobs:
					w.orch.GradeAttempt(ctx, id)
				}
			}
		}()
	}
}

func (w *Worker) Wait() { w.wg.Wait() }
