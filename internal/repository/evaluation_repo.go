package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/JJediny/heimdall2/internal/models"
)

// EvaluationRepository exposes the minimal evaluation access the tag lifecycle needs.
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.Evaluation) error
	GetByID(ctx context.Context, id uint) (models.Evaluation, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository constructs an evaluation repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	record := evaluationRecord{Version: evaluation.Version}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}

	*evaluation = record.toModel()
	return nil
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (models.Evaluation, error) {
	var record evaluationRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return models.Evaluation{}, err
	}

	return record.toModel(), nil
}
