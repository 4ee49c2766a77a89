package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"candidate-evaluator/internal/evalerr"
	"candidate-evaluator/internal/models"
)

type DocumentRepository interface {
	Create(document *models.Document) error
	UpdateStoragePath(id uuid.UUID, storagePath string) error
	FindByID(id uuid.UUID) (*models.Document, error)
	FindAll() ([]models.Document, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (d *documentRepository) Create(document *models.Document) error {
	if err := d.db.Create(document).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// UpdateStoragePath attaches the storage locator once the bytes are
// persisted; the only mutation a document record ever sees.
func (d *documentRepository) UpdateStoragePath(id uuid.UUID, storagePath string) error {
	result := d.db.Model(&models.Document{}).
		Where("id = ?", id).
		Update("storage_path", storagePath)
	if result.Error != nil {
		return fmt.Errorf("failed to update storage path: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return evalerr.New(evalerr.KindNotFound, "document %s not found", id)
	}
	return nil
}

func (d *documentRepository) FindByID(id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := d.db.Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, evalerr.New(evalerr.KindNotFound, "document %s not found", id)
		}
		return nil, fmt.Errorf("failed to find document: %w", err)
	}
	return &doc, nil
}

func (d *documentRepository) FindAll() ([]models.Document, error) {
	var docs []models.Document
	if err := d.db.Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

type ReferenceSetRepository interface {
	Create(set *models.ReferenceSet) error
	FindByID(id uuid.UUID) (*models.ReferenceSet, error)
	FindAll() ([]models.ReferenceSet, error)
}

type referenceSetRepository struct {
	db *gorm.DB
}

func NewReferenceSetRepository(db *gorm.DB) ReferenceSetRepository {
	return &referenceSetRepository{db: db}
}

func (r *referenceSetRepository) Create(set *models.ReferenceSet) error {
	if err := r.db.Create(set).Error; err != nil {
		return fmt.Errorf("failed to create reference set: %w", err)
	}
	return nil
}

func (r *referenceSetRepository) FindByID(id uuid.UUID) (*models.ReferenceSet, error) {
	var set models.ReferenceSet
	if err := r.db.Where("id = ?", id).First(&set).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, evalerr.New(evalerr.KindNotFound, "reference set %s not found", id)
		}
		return nil, fmt.Errorf("failed to find reference set: %w", err)
	}
	return &set, nil
}

func (r *referenceSetRepository) FindAll() ([]models.ReferenceSet, error) {
	var sets []models.ReferenceSet
	if err := r.db.Order("created_at DESC").Find(&sets).Error; err != nil {
		return nil, fmt.Errorf("failed to list reference sets: %w", err)
	}
	return sets, nil
}
