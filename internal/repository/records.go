package repository

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/JJediny/heimdall2/internal/models"
)

// Persistence rows. Domain records in internal/models stay free of storage tags.

type userRecord struct {
	ID              uint              `gorm:"primaryKey"`
	Username        string            `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash    *string           `gorm:"size:255"`
	Provider        *string           `gorm:"size:32;uniqueIndex:idx_users_provider_subject"`
	ProviderSubject *string           `gorm:"size:128;uniqueIndex:idx_users_provider_subject"`
	DisplayName     string            `gorm:"size:255"`
	Email           string            `gorm:"size:255"`
	Profile         datatypes.JSONMap `gorm:"type:json"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (userRecord) TableName() string { return "users" }

type evaluationRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Version   string `gorm:"size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (evaluationRecord) TableName() string { return "evaluations" }

// Tag timestamps are owned by the service clock, not by GORM.
type evaluationTagRecord struct {
	ID           uint              `gorm:"primaryKey"`
	Key          string            `gorm:"size:255;not null"`
	Value        string            `gorm:"type:text;not null"`
	EvaluationID uint              `gorm:"not null;index"`
	Evaluation   *evaluationRecord `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	CreatedAt    time.Time         `gorm:"not null;autoCreateTime:false"`
	UpdatedAt    time.Time         `gorm:"not null;autoUpdateTime:false"`
}

func (evaluationTagRecord) TableName() string { return "evaluation_tags" }

// AutoMigrate creates or updates the tables, unique indexes and foreign keys
// the repositories rely on.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&userRecord{}, &evaluationRecord{}, &evaluationTagRecord{})
}

func newUserRecord(user models.User) userRecord {
	record := userRecord{
		ID:              user.ID,
		Username:        user.Username,
		PasswordHash:    user.PasswordHash,
		Provider:        user.Provider,
		ProviderSubject: user.ProviderSubject,
		DisplayName:     user.DisplayName,
		Email:           user.Email,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
	if len(user.Profile) > 0 {
		record.Profile = datatypes.JSONMap(user.Profile)
	}
	return record
}

func (r userRecord) toModel() models.User {
	user := models.User{
		ID:              r.ID,
		Username:        r.Username,
		PasswordHash:    r.PasswordHash,
		Provider:        r.Provider,
		ProviderSubject: r.ProviderSubject,
		DisplayName:     r.DisplayName,
		Email:           r.Email,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if len(r.Profile) > 0 {
		user.Profile = map[string]interface{}(r.Profile)
	}
	return user
}

func (r evaluationRecord) toModel() models.Evaluation {
	return models.Evaluation{
		ID:        r.ID,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func newEvaluationTagRecord(tag models.EvaluationTag) evaluationTagRecord {
	return evaluationTagRecord{
		ID:           tag.ID,
		Key:          tag.Key,
		Value:        tag.Value,
		EvaluationID: tag.EvaluationID,
		CreatedAt:    tag.CreatedAt,
		UpdatedAt:    tag.UpdatedAt,
	}
}

func (r evaluationTagRecord) toModel() models.EvaluationTag {
	return models.EvaluationTag{
		ID:           r.ID,
		Key:          r.Key,
		Value:        r.Value,
		EvaluationID: r.EvaluationID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
