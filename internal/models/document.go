package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	DocTypeCV            DocumentType = "cv"
	DocTypeReport        DocumentType = "report"
	DocTypeJobDesc       DocumentType = "job_desc"
	DocTypeCaseBrief     DocumentType = "case_brief"
	DocTypeScoringRubric DocumentType = "scoring_rubric"
)

// ValidDocumentType reports whether t is one of the accepted document types.
func ValidDocumentType(t DocumentType) bool {
	switch t {
	case DocTypeCV, DocTypeReport, DocTypeJobDesc, DocTypeCaseBrief, DocTypeScoringRubric:
		return true
	}
	return false
}

type Document struct {
	ID               uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	Type             DocumentType `gorm:"type:text;not null;default:'cv'" json:"type"`
	Filename         string       `gorm:"type:text" json:"filename"`
	OriginalFileName string       `gorm:"type:text" json:"original_filename"`
	MimeType         string       `gorm:"type:text" json:"mime_type"`
	SHA256Checksum   string       `gorm:"type:varchar(64);index" json:"sha256_checksum"`
	StoragePath      string       `gorm:"type:text" json:"storage_path"`
	ReferenceSetID   *uuid.UUID   `gorm:"type:uuid;index" json:"reference_set_id,omitempty"`
	CreatedAt        time.Time    `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`

	ReferenceSet *ReferenceSet `gorm:"foreignKey:ReferenceSetID" json:"-"`
}

func (Document) TableName() string {
	return "documents"
}

type ReferenceSet struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"type:varchar(200);uniqueIndex;not null" json:"name"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ReferenceSet) TableName() string {
	return "reference_sets"
}
