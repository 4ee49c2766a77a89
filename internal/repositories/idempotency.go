package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"candidate-evaluator/internal/models"
)

type IdempotencyRepository interface {
	// FindByKey returns nil without error when the key is unmapped.
	FindByKey(key string) (*models.IdempotencyKey, error)
	// Create inserts the mapping; a duplicate key surfaces as
	// gorm.ErrDuplicatedKey so callers can resolve the race.
	Create(record *models.IdempotencyKey) error
}

type idempotencyRepository struct {
	db *gorm.DB
}

func NewIdempotencyRepository(db *gorm.DB) IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

func (r *idempotencyRepository) FindByKey(key string) (*models.IdempotencyKey, error) {
	var record models.IdempotencyKey
	if err := r.db.Where("key = ?", key).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return &record, nil
}

func (r *idempotencyRepository) Create(record *models.IdempotencyKey) error {
	if err := r.db.Create(record).Error; err != nil {
		return err
	}
	return nil
}
