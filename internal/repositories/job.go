package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"candidate-evaluator/internal/evalerr"
	"candidate-evaluator/internal/models"
)

// ErrNotClaimable means the job exists but is no longer in the queued state,
// typically because another worker claimed it first.
var ErrNotClaimable = errors.New("job is not claimable")

type JobRepository interface {
	Create(job *models.Job) error
	FindByID(id uuid.UUID) (*models.Job, error)
	// ClaimForProcessing atomically flips queued -> processing, increments
	// the attempt counter and stamps started_at. Exactly one concurrent
	// caller succeeds; the rest get ErrNotClaimable.
	ClaimForProcessing(id uuid.UUID) (*models.Job, error)
	MarkCompleted(id uuid.UUID) error
	MarkFailed(id uuid.UUID, errorCode, errorMessage string) error
	// Requeue flips a failed job back to queued for another attempt; used
	// only by the transient-failure retry policy.
	Requeue(id uuid.UUID) error
	FindQueued(limit int) ([]models.Job, error)
	AppendStageLog(jobID uuid.UUID, stage models.Stage, status models.StageStatus, details map[string]interface{}) error
	StageLogs(jobID uuid.UUID) ([]models.JobStageLog, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(job *models.Job) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *jobRepository) FindByID(id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.
		Preload("CVDocument").
		Preload("ReportDocument").
		Preload("ReferenceSet").
		Where("id = ?", id).
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, evalerr.New(evalerr.KindNotFound, "job %s not found", id)
		}
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return &job, nil
}

func (r *jobRepository) ClaimForProcessing(id uuid.UUID) (*models.Job, error) {
	now := time.Now()

	// Guarded UPDATE: the status predicate makes the claim a compare-and-swap
	// against concurrent workers, and the row lock it takes serializes them.
	result := r.db.Model(&models.Job{}).
		Where("id = ? AND status = ?", id, models.StatusQueued).
		Updates(map[string]interface{}{
			"status":     models.StatusProcessing,
			"attempts":   gorm.Expr("attempts + 1"),
			"started_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to claim job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByID(id); err != nil {
			return nil, err
		}
		return nil, ErrNotClaimable
	}

	return r.FindByID(id)
}

func (r *jobRepository) MarkCompleted(id uuid.UUID) error {
	return r.finish(id, map[string]interface{}{
		"status":       models.StatusCompleted,
		"completed_at": time.Now(),
	})
}

func (r *jobRepository) MarkFailed(id uuid.UUID, errorCode, errorMessage string) error {
	return r.finish(id, map[string]interface{}{
		"status":        models.StatusFailed,
		"error_code":    errorCode,
		"error_message": errorMessage,
		"completed_at":  time.Now(),
	})
}

func (r *jobRepository) Requeue(id uuid.UUID) error {
	result := r.db.Model(&models.Job{}).
		Where("id = ? AND status = ?", id, models.StatusFailed).
		Updates(map[string]interface{}{
			"status":       models.StatusQueued,
			"completed_at": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to requeue job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotClaimable
	}
	return nil
}

func (r *jobRepository) finish(id uuid.UUID, updates map[string]interface{}) error {
	result := r.db.Model(&models.Job{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return evalerr.New(evalerr.KindNotFound, "job %s not found", id)
	}
	return nil
}

func (r *jobRepository) FindQueued(limit int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find queued jobs: %w", err)
	}
	return jobs, nil
}

func (r *jobRepository) AppendStageLog(jobID uuid.UUID, stage models.Stage, status models.StageStatus, details map[string]interface{}) error {
	log := models.JobStageLog{
		ID:     uuid.New(),
		JobID:  jobID,
		Stage:  stage,
		Status: status,
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode stage details: %w", err)
		}
		log.Details = datatypes.JSON(raw)
	}

	if err := r.db.Create(&log).Error; err != nil {
		return fmt.Errorf("failed to append stage log: %w", err)
	}
	return nil
}

func (r *jobRepository) StageLogs(jobID uuid.UUID) ([]models.JobStageLog, error) {
	var logs []models.JobStageLog
	err := r.db.
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stage logs: %w", err)
	}
	return logs, nil
}
