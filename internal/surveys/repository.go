package surveys

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formloom/backend/internal/models"
	"github.com/formloom/backend/pkg/sqlbuild"
)

const surveyColumns = `id, user_id, title, subtitle, description, cover_image, background_color, font, starts_at, ends_at, max_participants, is_public, created_at, updated_at`

// updateAllow maps the survey fields clients may patch to their columns.
var updateAllow = map[string]string{
	"title":            "title",
	"subtitle":         "subtitle",
	"description":      "description",
	"cover_image":      "cover_image",
	"background_color": "background_color",
	"font":             "font",
	"starts_at":        "starts_at",
	"ends_at":          "ends_at",
	"max_participants": "max_participants",
	"is_public":        "is_public",
}

// Repository handles survey persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a survey repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSurvey(row pgx.Row, s *models.Survey) error {
	return row.Scan(&s.ID, &s.UserID, &s.Title, &s.Subtitle, &s.Description, &s.CoverImage, &s.BackgroundColor, &s.Font, &s.StartsAt, &s.EndsAt, &s.MaxParticipants, &s.IsPublic, &s.CreatedAt, &s.UpdatedAt)
}

// Create inserts a new survey.
func (r *Repository) Create(ctx context.Context, s *models.Survey) error {
	const q = `INSERT INTO surveys (title, subtitle, description, cover_image, background_color, font, starts_at, ends_at, max_participants, is_public, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, s.Title, s.Subtitle, s.Description, s.CoverImage, s.BackgroundColor, s.Font, s.StartsAt, s.EndsAt, s.MaxParticipants, s.IsPublic, s.UserID).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID returns a survey by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	const q = `SELECT ` + surveyColumns + ` FROM surveys WHERE id = $1`
	var s models.Survey
	if err := scanSurvey(r.pool.QueryRow(ctx, q, id), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByUser returns the surveys owned by a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Survey, error) {
	const q = `SELECT ` + surveyColumns + ` FROM surveys WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Survey
	for rows.Next() {
		var s models.Survey
		if err := scanSurvey(rows, &s); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// UpdateFields applies an allow-listed partial update and returns the
// updated survey. Unknown field names yield sqlbuild.ErrUnknownField.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Survey, error) {
	q, args, err := sqlbuild.Update("surveys", updateAllow, fields, "id", id, surveyColumns, true)
	if err != nil {
		return nil, err
	}
	var s models.Survey
	if err := scanSurvey(r.pool.QueryRow(ctx, q, args...), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SetCoverImage stores the uploaded cover image URL.
func (r *Repository) SetCoverImage(ctx context.Context, id uuid.UUID, url string) error {
	const q = `UPDATE surveys SET cover_image = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, url, id)
	return err
}

// Delete removes a survey; pages, questions, options, responses and
// share links cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM surveys WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// DetailRows returns the flattened page/question/option join for a
// survey, pre-sorted by (page order, question order, option order).
// Question columns are NULL for empty pages, option columns for
// questions without options.
func (r *Repository) DetailRows(ctx context.Context, surveyID uuid.UUID) ([]models.SurveyRow, error) {
	const q = `SELECT p.id, p.title, p.description, p.order_index,
			q.id, q.title, q.type, q.required, q.order_index, q.metadata,
			o.id, o.text, o.order_index
		FROM pages p
		LEFT JOIN questions q ON q.page_id = p.id
		LEFT JOIN options o ON o.question_id = q.id
		WHERE p.survey_id = $1
		ORDER BY p.order_index, p.id, q.order_index, q.id, o.order_index, o.id`
	rows, err := r.pool.Query(ctx, q, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SurveyRow
	for rows.Next() {
		var row models.SurveyRow
		var qType *string
		if err := rows.Scan(
			&row.PageID, &row.PageTitle, &row.PageDescription, &row.PageOrder,
			&row.QuestionID, &row.QuestionTitle, &qType, &row.QuestionRequired, &row.QuestionOrder, &row.QuestionMetadata,
			&row.OptionID, &row.OptionText, &row.OptionOrder,
		); err != nil {
			return nil, err
		}
		if qType != nil {
			t := models.QuestionType(*qType)
			row.QuestionType = &t
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Clone deep-copies a survey with all its pages, questions and options
// into a new survey owned by userID. Responses, share links and exports
// are not copied. The whole copy runs in one transaction.
func (r *Repository) Clone(ctx context.Context, surveyID, userID uuid.UUID) (*models.Survey, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const copySurvey = `INSERT INTO surveys (title, subtitle, description, cover_image, background_color, font, starts_at, ends_at, max_participants, is_public, user_id)
		SELECT title || ' (copy)', subtitle, description, cover_image, background_color, font, starts_at, ends_at, max_participants, FALSE, $2
		FROM surveys WHERE id = $1
		RETURNING ` + surveyColumns
	var clone models.Survey
	if err := scanSurvey(tx.QueryRow(ctx, copySurvey, surveyID, userID), &clone); err != nil {
		return nil, err
	}

	const listPages = `SELECT id FROM pages WHERE survey_id = $1 ORDER BY order_index, id`
	pageRows, err := tx.Query(ctx, listPages, surveyID)
	if err != nil {
		return nil, err
	}
	var pageIDs []uuid.UUID
	for pageRows.Next() {
		var id uuid.UUID
		if err := pageRows.Scan(&id); err != nil {
			pageRows.Close()
			return nil, err
		}
		pageIDs = append(pageIDs, id)
	}
	pageRows.Close()
	if err := pageRows.Err(); err != nil {
		return nil, err
	}

	const copyPage = `INSERT INTO pages (survey_id, title, description, order_index)
		SELECT $1, title, description, order_index FROM pages WHERE id = $2
		RETURNING id`
	const listQuestions = `SELECT id FROM questions WHERE page_id = $1 ORDER BY order_index, id`
	const copyQuestion = `INSERT INTO questions (page_id, title, type, required, order_index, metadata)
		SELECT $1, title, type, required, order_index, metadata FROM questions WHERE id = $2
		RETURNING id`
	const copyOptions = `INSERT INTO options (question_id, text, order_index)
		SELECT $1, text, order_index FROM options WHERE question_id = $2`

	for _, pageID := range pageIDs {
		var newPageID uuid.UUID
		if err := tx.QueryRow(ctx, copyPage, clone.ID, pageID).Scan(&newPageID); err != nil {
			return nil, err
		}
		qRows, err := tx.Query(ctx, listQuestions, pageID)
		if err != nil {
			return nil, err
		}
		var questionIDs []uuid.UUID
		for qRows.Next() {
			var id uuid.UUID
			if err := qRows.Scan(&id); err != nil {
				qRows.Close()
				return nil, err
			}
			questionIDs = append(questionIDs, id)
		}
		qRows.Close()
		if err := qRows.Err(); err != nil {
			return nil, err
		}
		for _, questionID := range questionIDs {
			var newQuestionID uuid.UUID
			if err := tx.QueryRow(ctx, copyQuestion, newPageID, questionID).Scan(&newQuestionID); err != nil {
				return nil, err
			}
			if _, err := tx.Exec(ctx, copyOptions, newQuestionID, questionID); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &clone, nil
}
