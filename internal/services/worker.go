package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"candidate-evaluator/internal/evalerr"
	"candidate-evaluator/internal/repositories"
)

// Worker pulls queued jobs and drives them through the orchestrator.
// Concurrency is across jobs; a single job's pipeline is strictly
// sequential.
type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(jobID uuid.UUID)
}

type worker struct {
	jobs         repositories.JobRepository
	orchestrator *Orchestrator
	jobQueue     chan uuid.UUID
	concurrency  int
	maxRetries   int
	initialDelay time.Duration
	wg           sync.WaitGroup
	stopChan     chan struct{}
	logger       *zap.Logger
}

func NewWorker(
	jobs repositories.JobRepository,
	orchestrator *Orchestrator,
	concurrency int,
	maxRetries int,
	initialDelay time.Duration,
	logger *zap.Logger,
) Worker {
	if initialDelay <= 0 {
		initialDelay = 2 * time.Second
	}
	return &worker{
		jobs:         jobs,
		orchestrator: orchestrator,
		jobQueue:     make(chan uuid.UUID, 100),
		concurrency:  concurrency,
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
		stopChan:     make(chan struct{}),
		logger:       logger,
	}
}

func (w *worker) Start(ctx context.Context) {
	w.logger.Info("starting worker pool", zap.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingJobs(ctx)
}

func (w *worker) Stop() {
	w.logger.Info("stopping worker pool")
	close(w.stopChan)
	w.wg.Wait()
}

func (w *worker) EnqueueJob(jobID uuid.UUID) {
	select {
	case w.jobQueue <- jobID:
		w.logger.Info("job enqueued", zap.String("job_id", jobID.String()))
	case <-w.stopChan:
		w.logger.Warn("worker stopped, cannot enqueue job", zap.String("job_id", jobID.String()))
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("worker stopped", zap.Int("worker_id", workerID))
			return
		case jobID := <-w.jobQueue:
			w.runWithRetry(ctx, workerID, jobID)
		}
	}
}

// runWithRetry executes one job, retrying transient failures with
// exponential backoff. Non-transient failures leave the job failed for
// manual inspection.
func (w *worker) runWithRetry(ctx context.Context, workerID int, jobID uuid.UUID) {
	log := w.logger.With(zap.Int("worker_id", workerID), zap.String("job_id", jobID.String()))

	delay := w.initialDelay
	for attempt := 0; ; attempt++ {
		err := w.orchestrator.ProcessJob(ctx, jobID)
		if err == nil {
			return
		}

		if !evalerr.IsTransient(err) {
			log.Error("job failed permanently", zap.Error(err))
			return
		}
		if attempt >= w.maxRetries {
			log.Error("job failed after exhausting retries",
				zap.Int("retries", attempt), zap.Error(err))
			return
		}

		log.Warn("transient failure, retrying",
			zap.Int("retry", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err))

		if rqErr := w.jobs.Requeue(jobID); rqErr != nil {
			log.Error("failed to requeue job for retry", zap.Error(rqErr))
			return
		}

		select {
		case <-w.stopChan:
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// pollPendingJobs re-enqueues queued rows the in-memory queue has lost
// track of, e.g. after a restart.
func (w *worker) pollPendingJobs(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			pending, err := w.jobs.FindQueued(10)
			if err != nil {
				w.logger.Warn("failed to fetch pending jobs", zap.Error(err))
				continue
			}
			for _, job := range pending {
				w.EnqueueJob(job.ID)
			}
		}
	}
}
