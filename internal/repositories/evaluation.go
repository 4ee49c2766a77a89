package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"candidate-evaluator/internal/evalerr"
	"candidate-evaluator/internal/models"
)

type EvaluationRepository interface {
	// Upsert creates or replaces the evaluation for eval.JobID; a job has at
	// most one evaluation.
	Upsert(eval *models.Evaluation) error
	FindByJobID(jobID uuid.UUID) (*models.Evaluation, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Upsert(eval *models.Evaluation) error {
	if eval.ID == uuid.Nil {
		eval.ID = uuid.New()
	}
	eval.UpdatedAt = time.Now()

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cv_match_rate",
			"cv_feedback",
			"project_score",
			"project_feedback",
			"overall_summary",
			"raw_llm",
			"updated_at",
		}),
	}).Create(eval).Error
	if err != nil {
		return fmt.Errorf("failed to upsert evaluation: %w", err)
	}
	return nil
}

func (r *evaluationRepository) FindByJobID(jobID uuid.UUID) (*models.Evaluation, error) {
	var eval models.Evaluation
	if err := r.db.Where("job_id = ?", jobID).First(&eval).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, evalerr.New(evalerr.KindNotFound, "evaluation for job %s not found", jobID)
		}
		return nil, fmt.Errorf("failed to find evaluation: %w", err)
	}
	return &eval, nil
}
