package services

import (
	"fmt"

	"candidate-evaluator/internal/models"
	"candidate-evaluator/internal/repositories"
)

// IdempotencyGuard ensures at most one job is created per client-supplied
// key. An empty key always creates.
type IdempotencyGuard struct {
	keys repositories.IdempotencyRepository
	jobs repositories.JobRepository
}

func NewIdempotencyGuard(keys repositories.IdempotencyRepository, jobs repositories.JobRepository) *IdempotencyGuard {
	return &IdempotencyGuard{keys: keys, jobs: jobs}
}

// RegisterOrGet returns the job mapped to key, creating it via create when
// the key is unseen. The second return value reports whether a new job was
// created. Two concurrent requests with the same unseen key may both create
// a job; the mapping's primary key decides the winner and the loser's
// caller receives the winning job.
func (g *IdempotencyGuard) RegisterOrGet(key string, create func() (*models.Job, error)) (*models.Job, bool, error) {
	if key == "" {
		job, err := create()
		return job, err == nil, err
	}

	existing, err := g.keys.FindByKey(key)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		job, err := g.jobs.FindByID(existing.JobID)
		return job, false, err
	}

	job, err := create()
	if err != nil {
		return nil, false, err
	}

	if err := g.keys.Create(&models.IdempotencyKey{Key: key, JobID: job.ID}); err != nil {
		// Lost the race: another request inserted the mapping first.
		winner, ferr := g.keys.FindByKey(key)
		if ferr != nil || winner == nil {
			return nil, false, fmt.Errorf("failed to record idempotency key: %w", err)
		}
		existing, ferr := g.jobs.FindByID(winner.JobID)
		if ferr != nil {
			return nil, false, ferr
		}
		// The loser's job id is never returned to a client; fail it so the
		// pending poller does not evaluate it. Best effort.
		_ = g.jobs.MarkFailed(job.ID, "duplicate", "superseded by a concurrent submission with the same idempotency key")
		return existing, false, nil
	}

	return job, true, nil
}
