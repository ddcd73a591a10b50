package options

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formloom/backend/internal/models"
)

var (
	// ErrNotInSurvey is returned when an option or question ID does not
	// belong to the survey named in the route.
	ErrNotInSurvey = fmt.Errorf("option does not belong to survey")
	// ErrNoOptions is returned when adding an option to a question type
	// that does not carry options.
	ErrNoOptions = fmt.Errorf("question type does not have options")
	// ErrLastOption is returned when deleting the only option of a
	// choice question, which must always keep at least one.
	ErrLastOption = fmt.Errorf("cannot delete the last option")
)

// Repository handles option persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an option repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) questionType(ctx context.Context, surveyID, questionID uuid.UUID) (models.QuestionType, error) {
	const q = `SELECT q.type FROM questions q JOIN pages p ON p.id = q.page_id
		WHERE q.id = $1 AND p.survey_id = $2`
	var typ string
	if err := r.pool.QueryRow(ctx, q, questionID, surveyID).Scan(&typ); err != nil {
		return "", ErrNotInSurvey
	}
	return models.QuestionType(typ), nil
}

// Create appends a new option to a choice-type question. Text questions
// reject option creation.
func (r *Repository) Create(ctx context.Context, surveyID, questionID uuid.UUID, text string) (*models.Option, error) {
	typ, err := r.questionType(ctx, surveyID, questionID)
	if err != nil {
		return nil, err
	}
	if !typ.HasOptions() {
		return nil, ErrNoOptions
	}
	const q = `INSERT INTO options (question_id, text, order_index)
		VALUES ($1, $2, (SELECT COUNT(*) FROM options WHERE question_id = $1))
		RETURNING id, question_id, text, order_index`
	var o models.Option
	if err := r.pool.QueryRow(ctx, q, questionID, text).Scan(&o.ID, &o.QuestionID, &o.Text, &o.OrderIndex); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateText sets an option's text.
func (r *Repository) UpdateText(ctx context.Context, surveyID, optionID uuid.UUID, text string) (*models.Option, error) {
	const q = `UPDATE options SET text = $1 WHERE id = $2
		AND question_id IN (SELECT q.id FROM questions q JOIN pages p ON p.id = q.page_id WHERE p.survey_id = $3)
		RETURNING id, question_id, text, order_index`
	var o models.Option
	if err := r.pool.QueryRow(ctx, q, text, optionID, surveyID).Scan(&o.ID, &o.QuestionID, &o.Text, &o.OrderIndex); err != nil {
		return nil, ErrNotInSurvey
	}
	return &o, nil
}

// Delete removes an option. A choice question keeps at least one
// option, deleting the last one fails.
func (r *Repository) Delete(ctx context.Context, surveyID, optionID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const lookup = `SELECT o.question_id, (SELECT COUNT(*) FROM options WHERE question_id = o.question_id)
		FROM options o JOIN questions q ON q.id = o.question_id JOIN pages p ON p.id = q.page_id
		WHERE o.id = $1 AND p.survey_id = $2`
	var questionID uuid.UUID
	var count int
	if err := tx.QueryRow(ctx, lookup, optionID, surveyID).Scan(&questionID, &count); err != nil {
		return ErrNotInSurvey
	}
	if count <= 1 {
		return ErrLastOption
	}
	const del = `DELETE FROM options WHERE id = $1`
	if _, err := tx.Exec(ctx, del, optionID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Reorder applies a full batch of order updates for one question's
// options inside a transaction. Last write wins across batches.
func (r *Repository) Reorder(ctx context.Context, surveyID, questionID uuid.UUID, updates []models.OrderUpdate) error {
	if _, err := r.questionType(ctx, surveyID, questionID); err != nil {
		return err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `UPDATE options SET order_index = $1 WHERE id = $2 AND question_id = $3`
	for _, u := range updates {
		tag, err := tx.Exec(ctx, q, u.OrderIndex, u.ID, questionID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrNotInSurvey, u.ID)
		}
	}
	return tx.Commit(ctx)
}
