package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/JJediny/heimdall2/internal/models"
)

// EvaluationTagRepository persists evaluation tags.
type EvaluationTagRepository interface {
	List(ctx context.Context) ([]models.EvaluationTag, error)
	GetByID(ctx context.Context, id uint) (models.EvaluationTag, error)
	Create(ctx context.Context, tag *models.EvaluationTag) error
	Update(ctx context.Context, tag models.EvaluationTag) error
	Delete(ctx context.Context, id uint) error
}

type evaluationTagRepository struct {
	db *gorm.DB
}

// NewEvaluationTagRepository constructs a repository backed by GORM.
func NewEvaluationTagRepository(db *gorm.DB) EvaluationTagRepository {
	return &evaluationTagRepository{db: db}
}

func (r *evaluationTagRepository) List(ctx context.Context) ([]models.EvaluationTag, error) {
	var records []evaluationTagRecord
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	tags := make([]models.EvaluationTag, 0, len(records))
	for _, record := range records {
		tags = append(tags, record.toModel())
	}
	return tags, nil
}

func (r *evaluationTagRepository) GetByID(ctx context.Context, id uint) (models.EvaluationTag, error) {
	var record evaluationTagRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return models.EvaluationTag{}, err
	}

	return record.toModel(), nil
}

func (r *evaluationTagRepository) Create(ctx context.Context, tag *models.EvaluationTag) error {
	record := newEvaluationTagRecord(*tag)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}

	*tag = record.toModel()
	return nil
}

// Update writes key, value and updated_at. It returns gorm.ErrRecordNotFound
// when the row no longer exists instead of re-inserting it.
func (r *evaluationTagRepository) Update(ctx context.Context, tag models.EvaluationTag) error {
	result := r.db.WithContext(ctx).
		Model(&evaluationTagRecord{}).
		Where("id = ?", tag.ID).
		Updates(map[string]interface{}{
			"key":        tag.Key,
			"value":      tag.Value,
			"updated_at": tag.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *evaluationTagRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&evaluationTagRecord{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
