package jobs

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultJobDelay     = 100 * time.Millisecond
)

// Worker drives one pipeline's claim -> evaluate -> persist cycle. The loop
// is single-threaded; horizontal scaling is more processes against the same
// store, with correctness resting on Store.ClaimNext alone.
type Worker struct {
	ID        string
	Pipeline  string
	Store     Store
	Registry  Heartbeater
	Evaluator Evaluator

	// Validate re-checks a claimed payload before any evaluator call.
	Validate func(*Job) error

	// Daemon keeps the loop alive on an empty queue; otherwise the first
	// empty poll ends the run. MaxJobs, when positive, caps successfully
	// processed jobs per run in either mode.
	Daemon  bool
	MaxJobs int

	PollInterval time.Duration
	JobDelay     time.Duration

	Log *slog.Logger
}

// Run processes jobs until the queue policy says stop or ctx is cancelled.
// Returns the number of successfully processed jobs. Per-job failures are
// absorbed into the job's terminal state and never end the run.
func (w *Worker) Run(ctx context.Context) int {
	log := w.logger()
	poll := w.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	delay := w.JobDelay
	if delay < 0 {
		delay = 0
	} else if delay == 0 {
		delay = defaultJobDelay
	}

	processed := 0
	log.Info("worker started", "worker_id", w.ID, "pipeline", w.Pipeline, "daemon", w.Daemon, "max_jobs", w.MaxJobs)

	for {
		if ctx.Err() != nil {
			break
		}

		// Liveness is advisory. A broken heartbeat must never stop job flow.
		if err := w.Registry.Heartbeat(ctx, w.ID); err != nil {
			log.Debug("heartbeat failed", "worker_id", w.ID, "err", err)
		}

		job, err := w.Store.ClaimNext(ctx)
		if err != nil {
			log.Error("claim failed", "err", err)
			if !sleepCtx(ctx, poll) {
				break
			}
			continue
		}

		if job == nil {
			if !w.Daemon {
				log.Info("no pending jobs, exiting", "processed", processed)
				return processed
			}
			if !sleepCtx(ctx, poll) {
				break
			}
			continue
		}

		log.Info("processing job", "id", job.ID, "user_id", job.UserID, "task_id", job.TaskID, "task_type", job.TaskType)

		if err := w.Validate(job); err != nil {
			if merr := w.Store.MarkFailed(ctx, job.ID, err.Error()); merr != nil {
				log.Error("mark failed errored", "id", job.ID, "err", merr)
			}
			log.Warn("job skipped, incomplete payload", "id", job.ID, "reason", err.Error())
			continue
		}

		result, err := w.Evaluator.Evaluate(ctx, job)
		if err != nil {
			// Terminal. Recovery is a fresh submission, never an automatic retry.
			if merr := w.Store.MarkFailed(ctx, job.ID, err.Error()); merr != nil {
				log.Error("mark failed errored", "id", job.ID, "err", merr)
			}
			log.Warn("job failed", "id", job.ID, "err", err)
		} else {
			if merr := w.Store.MarkDone(ctx, job.ID, result); merr != nil {
				log.Error("mark done errored", "id", job.ID, "err", merr)
			} else {
				log.Info("job completed", "id", job.ID)
				processed++
			}
		}

		if w.MaxJobs > 0 && processed >= w.MaxJobs {
			log.Info("reached max jobs limit", "max_jobs", w.MaxJobs)
			return processed
		}

		// Bounds the request rate against the evaluator.
		if !sleepCtx(ctx, delay) {
			break
		}
	}

	log.Info("worker stopped", "worker_id", w.ID, "processed", processed)
	return processed
}

func (w *Worker) logger() *slog.Logger {
	if w.Log != nil {
		return w.Log
	}
	return slog.Default()
}

// sleepCtx waits for d or until ctx is done; false means ctx won.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
