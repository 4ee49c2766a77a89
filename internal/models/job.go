package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job is the unit of evaluation work. Status moves queued -> processing ->
// completed|failed and never backwards.
type Job struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	JobTitle         string     `gorm:"type:varchar(200);not null" json:"job_title"`
	CVDocumentID     uuid.UUID  `gorm:"type:uuid;not null" json:"cv_document_id"`
	ReportDocumentID uuid.UUID  `gorm:"type:uuid;not null" json:"report_document_id"`
	ReferenceSetID   *uuid.UUID `gorm:"type:uuid;index" json:"reference_set_id,omitempty"`
	Status           JobStatus  `gorm:"type:varchar(12);not null;default:'queued';index" json:"status"`
	Attempts         int        `gorm:"not null;default:0" json:"attempts"`
	ErrorCode        *string    `gorm:"type:varchar(64)" json:"error_code,omitempty"`
	ErrorMessage     *string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`

	CVDocument     Document      `gorm:"foreignKey:CVDocumentID" json:"-"`
	ReportDocument Document      `gorm:"foreignKey:ReportDocumentID" json:"-"`
	ReferenceSet   *ReferenceSet `gorm:"foreignKey:ReferenceSetID" json:"-"`
}

func (Job) TableName() string {
	return "jobs"
}

type Stage string

const (
	StageParseCV     Stage = "parse_cv"
	StageEvalCV      Stage = "eval_cv"
	StageParseReport Stage = "parse_report"
	StageEvalProject Stage = "eval_project"
	StageSynthesize  Stage = "synthesize"
)

type StageStatus string

const (
	StageStarted StageStatus = "started"
	StageSuccess StageStatus = "success"
	StageFailed  StageStatus = "failed"
)

// JobStageLog is an append-only audit record; rows are never updated.
type JobStageLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	JobID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"job_id"`
	Stage     Stage          `gorm:"type:varchar(20);not null" json:"stage"`
	Status    StageStatus    `gorm:"type:varchar(20);not null" json:"status"`
	Details   datatypes.JSON `json:"details,omitempty"`
	CreatedAt time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`

	Job Job `gorm:"foreignKey:JobID" json:"-"`
}

func (JobStageLog) TableName() string {
	return "job_stage_logs"
}

// IdempotencyKey maps a client-supplied key to the job it first created.
// Rows are inserted at most once per key and never updated.
type IdempotencyKey struct {
	Key       string    `gorm:"type:varchar(64);primary_key" json:"key"`
	JobID     uuid.UUID `gorm:"type:uuid;not null" json:"job_id"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`

	Job Job `gorm:"foreignKey:JobID" json:"-"`
}

func (IdempotencyKey) TableName() string {
	return "idempotency_keys"
}
