package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/JJediny/heimdall2/internal/dto"
	"github.com/JJediny/heimdall2/internal/models"
	"github.com/JJediny/heimdall2/internal/observability"
	"github.com/JJediny/heimdall2/internal/repository"
)

// EvaluationTagService manages the lifecycle of evaluation tags.
type EvaluationTagService interface {
	Create(ctx context.Context, evaluationID uint, req dto.CreateEvaluationTagRequest) (dto.EvaluationTagResponse, error)
	FindAll(ctx context.Context) ([]dto.EvaluationTagResponse, error)
	FindByID(ctx context.Context, id uint) (dto.EvaluationTagResponse, error)
	Update(ctx context.Context, id uint, req dto.UpdateEvaluationTagRequest) (dto.EvaluationTagResponse, error)
	Remove(ctx context.Context, id uint) (dto.EvaluationTagResponse, error)
}

type evaluationTagService struct {
	repo      repository.EvaluationTagRepository
	validator *validator.Validate
	events    EventPublisher
	now       func() time.Time
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewEvaluationTagService constructs the tag lifecycle service.
func NewEvaluationTagService(repo repository.EvaluationTagRepository, validate *validator.Validate, events EventPublisher, logger zerolog.Logger) EvaluationTagService {
	if events == nil {
		events = NewLogEventPublisher(logger)
	}
	return &evaluationTagService{
		repo:      repo,
		validator: validate,
		events:    events,
		now:       time.Now,
		logger:    logger.With().Str("component", "evaluation_tag_service").Logger(),
		tracer:    otel.Tracer("github.com/JJediny/heimdall2/internal/service/evaluation_tag"),
	}
}

func (s *evaluationTagService) Create(ctx context.Context, evaluationID uint, req dto.CreateEvaluationTagRequest) (dto.EvaluationTagResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation_tag.create")
	defer span.End()
	span.SetAttributes(attribute.Int64("evaluation.id", int64(evaluationID)))

	if err := s.validator.Struct(req); err != nil {
		s.record("create", "invalid")
		span.SetStatus(codes.Error, "validation failed")
		return dto.EvaluationTagResponse{}, ValidationFromError(err)
	}

	key, err := s.clean("key", req.Key)
	if err != nil {
		s.record("create", "invalid")
		return dto.EvaluationTagResponse{}, err
	}
	value, err := s.clean("value", req.Value)
	if err != nil {
		s.record("create", "invalid")
		return dto.EvaluationTagResponse{}, err
	}

	now := s.timestamp()
	tag := models.EvaluationTag{
		Key:          key,
		Value:        value,
		EvaluationID: evaluationID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, &tag); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			s.record("create", "rejected")
			return dto.EvaluationTagResponse{}, ErrReferentialViolation
		}
		s.record("create", "error")
		return dto.EvaluationTagResponse{}, fmt.Errorf("create evaluation tag: %w", err)
	}

	response := dto.NewEvaluationTagResponse(tag)
	s.record("create", "success")
	s.publish(ctx, EventEvaluationTagCreated, response)
	s.logger.Info().Uint("tag_id", tag.ID).Uint("evaluation_id", evaluationID).Msg("evaluation tag created")
	return response, nil
}

func (s *evaluationTagService) FindAll(ctx context.Context) ([]dto.EvaluationTagResponse, error) {
	tags, err := s.repo.List(ctx)
	if err != nil {
		s.record("list", "error")
		return nil, fmt.Errorf("list evaluation tags: %w", err)
	}

	s.record("list", "success")
	return dto.NewEvaluationTagResponseSlice(tags), nil
}

func (s *evaluationTagService) FindByID(ctx context.Context, id uint) (dto.EvaluationTagResponse, error) {
	tag, err := s.get(ctx, id)
	if err != nil {
		s.record("get", outcomeFor(err))
		return dto.EvaluationTagResponse{}, err
	}

	s.record("get", "success")
	return dto.NewEvaluationTagResponse(tag), nil
}

// Update merges the supplied fields into the stored tag. Concurrent updates
// are last-write-wins.
func (s *evaluationTagService) Update(ctx context.Context, id uint, req dto.UpdateEvaluationTagRequest) (dto.EvaluationTagResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation_tag.update")
	defer span.End()
	span.SetAttributes(attribute.Int64("evaluation_tag.id", int64(id)))

	if err := s.validator.Struct(req); err != nil {
		s.record("update", "invalid")
		return dto.EvaluationTagResponse{}, ValidationFromError(err)
	}

	var key, value *string
	if req.Key != nil {
		cleaned, err := s.clean("key", *req.Key)
		if err != nil {
			s.record("update", "invalid")
			return dto.EvaluationTagResponse{}, err
		}
		key = &cleaned
	}
	if req.Value != nil {
		cleaned, err := s.clean("value", *req.Value)
		if err != nil {
			s.record("update", "invalid")
			return dto.EvaluationTagResponse{}, err
		}
		value = &cleaned
	}

	tag, err := s.get(ctx, id)
	if err != nil {
		s.record("update", outcomeFor(err))
		span.SetStatus(codes.Error, "lookup failed")
		return dto.EvaluationTagResponse{}, err
	}

	if key != nil {
		tag.Key = *key
	}
	if value != nil {
		tag.Value = *value
	}
	tag.UpdatedAt = nextUpdatedAt(s.timestamp(), tag.UpdatedAt)

	if err := s.repo.Update(ctx, tag); err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.record("update", "not_found")
			return dto.EvaluationTagResponse{}, ErrEvaluationTagNotFound
		}
		s.record("update", "error")
		return dto.EvaluationTagResponse{}, fmt.Errorf("update evaluation tag: %w", err)
	}

	response := dto.NewEvaluationTagResponse(tag)
	s.record("update", "success")
	s.publish(ctx, EventEvaluationTagUpdated, response)
	return response, nil
}

// Remove deletes the tag and returns the state it had immediately before.
func (s *evaluationTagService) Remove(ctx context.Context, id uint) (dto.EvaluationTagResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation_tag.remove")
	defer span.End()
	span.SetAttributes(attribute.Int64("evaluation_tag.id", int64(id)))

	snapshot, err := s.get(ctx, id)
	if err != nil {
		s.record("remove", outcomeFor(err))
		return dto.EvaluationTagResponse{}, err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.record("remove", "not_found")
			return dto.EvaluationTagResponse{}, ErrEvaluationTagNotFound
		}
		s.record("remove", "error")
		return dto.EvaluationTagResponse{}, fmt.Errorf("delete evaluation tag: %w", err)
	}

	response := dto.NewEvaluationTagResponse(snapshot)
	s.record("remove", "success")
	s.publish(ctx, EventEvaluationTagDeleted, response)
	s.logger.Info().Uint("tag_id", id).Msg("evaluation tag removed")
	return response, nil
}

func (s *evaluationTagService) get(ctx context.Context, id uint) (models.EvaluationTag, error) {
	tag, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.EvaluationTag{}, ErrEvaluationTagNotFound
		}
		return models.EvaluationTag{}, fmt.Errorf("load evaluation tag: %w", err)
	}
	return tag, nil
}

// clean rejects blank input. The value is stored exactly as sent.
func (s *evaluationTagService) clean(field, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", newValidationError(field, "must not be empty")
	}
	return raw, nil
}

// timestamp matches the microsecond precision the database stores.
func (s *evaluationTagService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *evaluationTagService) publish(ctx context.Context, eventType string, payload dto.EvaluationTagResponse) {
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Uint("tag_id", payload.ID).Msg("failed to publish evaluation tag event")
	}
}

func (s *evaluationTagService) record(operation, outcome string) {
	observability.TagOperations().WithLabelValues(operation, outcome).Inc()
}

// nextUpdatedAt keeps updatedAt strictly increasing even when the clock has
// not advanced past the previous write.
func nextUpdatedAt(now, previous time.Time) time.Time {
	if now.After(previous) {
		return now
	}
	return previous.Add(time.Microsecond)
}

func outcomeFor(err error) string {
	if errors.Is(err, ErrEvaluationTagNotFound) {
		return "not_found"
	}
	return "error"
}
