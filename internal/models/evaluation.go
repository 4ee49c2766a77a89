package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Evaluation is the 1:1 result record for a completed job. RawLLM keeps the
// three raw model payloads for audit.
type Evaluation struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	JobID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"job_id"`
	CVMatchRate     float64        `gorm:"column:cv_match_rate;type:decimal(3,2)" json:"cv_match_rate"`
	CVFeedback      string         `gorm:"type:text" json:"cv_feedback"`
	ProjectScore    float64        `gorm:"type:decimal(2,1)" json:"project_score"`
	ProjectFeedback string         `gorm:"type:text" json:"project_feedback"`
	OverallSummary  string         `gorm:"type:text" json:"overall_summary"`
	RawLLM          datatypes.JSON `json:"raw_llm,omitempty"`
	CreatedAt       time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	Job Job `gorm:"foreignKey:JobID" json:"-"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ReferenceSet{},
		&Document{},
		&Job{},
		&JobStageLog{},
		&Evaluation{},
		&IdempotencyKey{},
	)
}
