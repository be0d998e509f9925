package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/JJediny/heimdall2/internal/models"
)

// UserRepository provides access to user records.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByExternalIdentity(ctx context.Context, provider, subject string) (models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var record userRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return models.User{}, err
	}

	return record.toModel(), nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	var record userRecord
	if err := r.db.WithContext(ctx).Where("username = ?", username).Take(&record).Error; err != nil {
		return models.User{}, err
	}

	return record.toModel(), nil
}

func (r *userRepository) FindByExternalIdentity(ctx context.Context, provider, subject string) (models.User, error) {
	var record userRecord
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_subject = ?", provider, subject).
		Take(&record).
		Error
	if err != nil {
		return models.User{}, err
	}

	return record.toModel(), nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	record := newUserRecord(*user)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}

	*user = record.toModel()
	return nil
}
