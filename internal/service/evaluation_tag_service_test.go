package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JJediny/heimdall2/internal/dto"
	"github.com/JJediny/heimdall2/internal/models"
	"github.com/JJediny/heimdall2/internal/repository"
)

type tagFixture struct {
	db         *gorm.DB
	service    EvaluationTagService
	events     *recordingPublisher
	evaluation models.Evaluation
	clock      *time.Time
}

func newTagFixture(t *testing.T) tagFixture {
	t.Helper()

	db := setupServiceDB(t)
	evaluation := models.Evaluation{Version: "1.0.0"}
	require.NoError(t, repository.NewEvaluationRepository(db).Create(context.Background(), &evaluation))

	events := &recordingPublisher{}
	svc := NewEvaluationTagService(repository.NewEvaluationTagRepository(db), validator.New(), events, testLogger())

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.(*evaluationTagService).now = func() time.Time { return clock }

	return tagFixture{db: db, service: svc, events: events, evaluation: evaluation, clock: &clock}
}

func stringPtr(value string) *string {
	return &value
}

func TestEvaluationTagCreateAndFind(t *testing.T) {
	fx := newTagFixture(t)

	created, err := fx.service.Create(context.Background(), fx.evaluation.ID, dto.CreateEvaluationTagRequest{Key: "env", Value: "prod"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, fx.evaluation.ID, created.EvaluationID)
	require.True(t, created.CreatedAt.Equal(*fx.clock))
	require.True(t, created.UpdatedAt.Equal(created.CreatedAt))

	found, err := fx.service.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "env", found.Key)
	require.Equal(t, "prod", found.Value)
	require.Equal(t, []string{EventEvaluationTagCreated}, fx.events.types())
}

func TestEvaluationTagCreateRejectsEmptyFields(t *testing.T) {
	fx := newTagFixture(t)

	cases := []dto.CreateEvaluationTagRequest{
		{Key: "", Value: "prod"},
		{Key: "env", Value: ""},
		{Key: "   ", Value: "prod"},
		{Key: "env", Value: "\t\n"},
	}
	for _, req := range cases {
		_, err := fx.service.Create(context.Background(), fx.evaluation.ID, req)
		require.ErrorIs(t, err, ErrValidation)
	}

	tags, err := fx.service.FindAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, tags)
}

func TestEvaluationTagStoresValuesVerbatim(t *testing.T) {
	fx := newTagFixture(t)

	created, err := fx.service.Create(context.Background(), fx.evaluation.ID, dto.CreateEvaluationTagRequest{Key: " owner ", Value: "R&D <ops>"})
	require.NoError(t, err)
	require.Equal(t, " owner ", created.Key)
	require.Equal(t, "R&D <ops>", created.Value)

	found, err := fx.service.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "R&D <ops>", found.Value)

	updated, err := fx.service.Update(context.Background(), created.ID, dto.UpdateEvaluationTagRequest{Value: stringPtr(found.Value + " > a < b")})
	require.NoError(t, err)
	require.Equal(t, "R&D <ops> > a < b", updated.Value)

	markup, err := fx.service.Create(context.Background(), fx.evaluation.ID, dto.CreateEvaluationTagRequest{Key: "note", Value: "<b></b>"})
	require.NoError(t, err)

	found, err = fx.service.FindByID(context.Background(), markup.ID)
	require.NoError(t, err)
	require.Equal(t, "<b></b>", found.Value)
}

func TestEvaluationTagCreateRequiresExistingEvaluation(t *testing.T) {
	fx := newTagFixture(t)

	_, err := fx.service.Create(context.Background(), fx.evaluation.ID+100, dto.CreateEvaluationTagRequest{Key: "env", Value: "prod"})
	require.ErrorIs(t, err, ErrReferentialViolation)
	require.Empty(t, fx.events.types())
}

func TestEvaluationTagFindAllGrows(t *testing.T) {
	fx := newTagFixture(t)

	tags, err := fx.service.FindAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, tags)
	require.Len(t, tags, 0)

	first, err := fx.service.Create(context.Background(), fx.evaluation.ID, dto.CreateEvaluationTagRequest{Key: "a", Value: "1"})
	require.NoError(t, err)
	tags, err = fx.service.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 1)

	second, err := fx.service.Create(context.Background(), fx.evaluation.ID, dto.CreateEvaluationTagRequest{Key: "b", Value: "2"})
	require.NoError(t, err)
	tags, err = fx.service.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	require.Equal(t, first.ID, tags[0].ID)
	require.Equal(t, second.ID, tags[1].ID)
}

func TestEvaluationTagFindByIDNotFound(t *testing.T) {
	fx := newTagFixture(t)

	_, err := fx.service.FindByID(context.Background(), 404)
	require.ErrorIs(t, err, ErrEvaluationTagNotFound)
}

func TestEvaluationTagPartialUpdate(t *testing.T) {
	fx := newTagFixture(t)
	created, err := fx.service.Create(context.Background(), fx.evaluation.ID, dto.CreateEvaluationTagRequest{Key: "env", Value: "prod"})
	require.NoError(t, err)

	updated, err := fx.service.Update(context.Background(), created.ID, dto.UpdateEvaluationTagRequest{Key: stringPtr("stage")})
	require.NoError(t, err)
	require.Equal(t, "stage", updated.Key)
	require.Equal(t, "prod", updated.Value)
	require.Equal(t, created.EvaluationID, updated.EvaluationID)
	require.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	stored, err := fx.service.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "stage", stored.Key)
	require.Equal(t, "prod", stored.Value)
}

func TestEvaluationTagUpdatedAtStrictlyIncreases(t *testing.T) {
	fx := newTagFixture(t)
	created, err := fx.service.Create(context.Background(), fx.evaluation.ID, dto.CreateEvaluationTagRequest{Key: "env", Value: "prod"})
	require.NoError(t, err)

	// The clock is frozen, so every update lands on the same instant.
	previous := created.UpdatedAt
	for i := 0; i < 3; i++ {
		updated, err := fx.service.Update(context.Background(), created.ID, dto.UpdateEvaluationTagRequest{Value: stringPtr("v")})
		require.NoError(t, err)
		require.True(t, updated.UpdatedAt.After(previous))

		stored, err := fx.service.FindByID(context.Background(), created.ID)
		require.NoError(t, err)
		require.True(t, stored.UpdatedAt.Equal(updated.UpdatedAt))
		previous = updated.UpdatedAt
	}

	*fx.clock = fx.clock.Add(time.Hour)
	updated, err := fx.service.Update(context.Background(), created.ID, dto.UpdateEvaluationTagRequest{})
	require.NoError(t, err)
	require.True(t, updated.UpdatedAt.Equal(*fx.clock))
}

func TestEvaluationTagUpdateRejectsEmptySuppliedField(t *testing.T) {
	fx := newTagFixture(t)
	created, err := fx.service.Create(context.Background(), fx.evaluation.ID, dto.CreateEvaluationTagRequest{Key: "env", Value: "prod"})
	require.NoError(t, err)

	_, err = fx.service.Update(context.Background(), created.ID, dto.UpdateEvaluationTagRequest{Value: stringPtr("")})
	require.ErrorIs(t, err, ErrValidation)

	_, err = fx.service.Update(context.Background(), 999, dto.UpdateEvaluationTagRequest{Key: stringPtr("x")})
	require.ErrorIs(t, err, ErrEvaluationTagNotFound)
}

func TestEvaluationTagRemoveReturnsSnapshot(t *testing.T) {
	fx := newTagFixture(t)
	created, err := fx.service.Create(context.Background(), fx.evaluation.ID, dto.CreateEvaluationTagRequest{Key: "env", Value: "prod"})
	require.NoError(t, err)

	removed, err := fx.service.Remove(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, removed.ID)
	require.Equal(t, "env", removed.Key)
	require.Equal(t, "prod", removed.Value)

	_, err = fx.service.FindByID(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrEvaluationTagNotFound)

	_, err = fx.service.Remove(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrEvaluationTagNotFound)

	require.Equal(t, []string{EventEvaluationTagCreated, EventEvaluationTagDeleted}, fx.events.types())
}

func TestEvaluationTagWritesSurviveEventFailures(t *testing.T) {
	fx := newTagFixture(t)
	fx.events.err = context.Canceled

	created, err := fx.service.Create(context.Background(), fx.evaluation.ID, dto.CreateEvaluationTagRequest{Key: "env", Value: "prod"})
	require.NoError(t, err)
	_, err = fx.service.Remove(context.Background(), created.ID)
	require.NoError(t, err)
}

func TestNextUpdatedAt(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, nextUpdatedAt(base.Add(time.Second), base).Equal(base.Add(time.Second)))
	require.True(t, nextUpdatedAt(base, base).Equal(base.Add(time.Microsecond)))
	require.True(t, nextUpdatedAt(base.Add(-time.Minute), base).Equal(base.Add(time.Microsecond)))
}
