package builder

import (
	"context"

	"github.com/google/uuid"

	"github.com/formloom/backend/internal/models"
)

// Collaborator is the backend surface the editing session depends on.
// Fields maps are open, allow-listed partial updates; identifiers are
// always confirmed ids (the session never passes placeholder ids).
type Collaborator interface {
	SurveyDetail(ctx context.Context, surveyID uuid.UUID) (*models.SurveyDetail, error)
	CreateSurvey(ctx context.Context, fields map[string]any) (*models.Survey, error)
	UpdateSurvey(ctx context.Context, surveyID uuid.UUID, fields map[string]any) (*models.Survey, error)

	CreatePage(ctx context.Context, surveyID uuid.UUID, fields map[string]any) (*models.Page, error)
	UpdatePage(ctx context.Context, surveyID, pageID uuid.UUID, fields map[string]any) (*models.Page, error)
	DeletePage(ctx context.Context, surveyID, pageID uuid.UUID) error
	ReorderPages(ctx context.Context, surveyID uuid.UUID, updates []models.OrderUpdate) error

	// CreateQuestion returns the question with any default options the
	// backend created for choice types.
	CreateQuestion(ctx context.Context, surveyID, pageID uuid.UUID, fields map[string]any) (*models.Question, error)
	UpdateQuestion(ctx context.Context, surveyID, questionID uuid.UUID, fields map[string]any) (*models.Question, error)
	DeleteQuestion(ctx context.Context, surveyID, questionID uuid.UUID) error
	ReorderQuestions(ctx context.Context, surveyID, pageID uuid.UUID, updates []models.OrderUpdate) error

	CreateOption(ctx context.Context, surveyID, questionID uuid.UUID, text string) (*models.Option, error)
	UpdateOption(ctx context.Context, surveyID, optionID uuid.UUID, text string) (*models.Option, error)
	DeleteOption(ctx context.Context, surveyID, optionID uuid.UUID) error
	ReorderOptions(ctx context.Context, surveyID, questionID uuid.UUID, updates []models.OrderUpdate) error
}
