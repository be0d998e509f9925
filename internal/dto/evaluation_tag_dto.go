package dto

import (
	"time"

	"github.com/JJediny/heimdall2/internal/models"
)

// CreateEvaluationTagRequest is the body used to attach a tag to an evaluation.
type CreateEvaluationTagRequest struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// UpdateEvaluationTagRequest carries a partial tag update. Nil fields are left unchanged.
type UpdateEvaluationTagRequest struct {
	Key   *string `json:"key" validate:"omitempty"`
	Value *string `json:"value" validate:"omitempty"`
}

// EvaluationTagResponse is the serialized representation of a tag.
type EvaluationTagResponse struct {
	ID           uint      `json:"id"`
	Key          string    `json:"key"`
	Value        string    `json:"value"`
	EvaluationID uint      `json:"evaluation_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewEvaluationTagResponse converts a tag model into a DTO.
func NewEvaluationTagResponse(tag models.EvaluationTag) EvaluationTagResponse {
	return EvaluationTagResponse{
		ID:           tag.ID,
		Key:          tag.Key,
		Value:        tag.Value,
		EvaluationID: tag.EvaluationID,
		CreatedAt:    tag.CreatedAt,
		UpdatedAt:    tag.UpdatedAt,
	}
}

// NewEvaluationTagResponseSlice converts tags into DTOs, always returning a non-nil slice.
func NewEvaluationTagResponseSlice(tags []models.EvaluationTag) []EvaluationTagResponse {
	out := make([]EvaluationTagResponse, 0, len(tags))
	for _, tag := range tags {
		out = append(out, NewEvaluationTagResponse(tag))
	}
	return out
}
