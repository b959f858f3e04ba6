package scheduler

import (
	"context"
	"time"

	"taskbot-project/microservices/tasks-service/logging"
)

const (
	defaultPollInterval = 15 * time.Second
	defaultClaimLimit   = 100
)

// Worker polls the job store for due jobs and runs the dispatcher for
// each claimed job. Several workers may poll the same store; ClaimDue
// hands every job to exactly one of them, and the dispatcher tolerates
// the duplicates a crashed worker can leave behind.
type Worker struct {
	store      JobStore
	dispatcher *Dispatcher

	pollInterval time.Duration
	claimLimit   int64

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewWorker(store JobStore, dispatcher *Dispatcher) *Worker {
	return &Worker{
		store:        store,
		dispatcher:   dispatcher,
		pollInterval: defaultPollInterval,
		claimLimit:   defaultClaimLimit,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start launches the polling loop in its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
	logging.Logger.Info("Event ID: WORKER_STARTED, Description: Notification worker started.")
}

// Stop terminates the polling loop and waits for it to finish.
func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.doneCh
	logging.Logger.Info("Event ID: WORKER_STOPPED, Description: Notification worker stopped.")
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll claims everything due and dispatches job by job. A dispatch
// failure affects only that job: the work is at-least-once and the
// dispatcher discards anything that became moot in the meantime.
func (w *Worker) poll(ctx context.Context) {
	jobs, err := w.store.ClaimDue(ctx, time.Now(), w.claimLimit)
	if err != nil {
		logging.Logger.Errorf("Event ID: WORKER_CLAIM_FAILED, Description: Failed to claim due jobs: %v", err)
		return
	}

	for _, job := range jobs {
		p := job.Payload
		if err := w.dispatcher.OnNotificationDue(ctx, p.TaskID, p.Role, p.Subject); err != nil {
			logging.Logger.Errorf("Event ID: WORKER_DISPATCH_FAILED, Description: Failed to dispatch %s for task %s (%s): %v", p.Subject, p.TaskID, p.Role, err)
		}
	}
}
