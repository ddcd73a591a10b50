package questions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formloom/backend/internal/models"
	"github.com/formloom/backend/pkg/sqlbuild"
)

// ErrNotInSurvey is returned when a question ID does not belong to the
// survey named in the route.
var ErrNotInSurvey = fmt.Errorf("question does not belong to survey")

// ErrInvalidType is returned for unknown question types.
var ErrInvalidType = fmt.Errorf("invalid question type")

const questionColumns = `id, page_id, title, type, required, order_index, metadata`

var updateAllow = map[string]string{
	"title":    "title",
	"type":     "type",
	"required": "required",
	"metadata": "metadata",
}

// Repository handles question persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a question repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type row interface {
	Scan(dest ...any) error
}

func scanQuestion(r row, q *models.Question) error {
	var typ string
	if err := r.Scan(&q.ID, &q.PageID, &q.Title, &typ, &q.Required, &q.OrderIndex, &q.Metadata); err != nil {
		return err
	}
	q.Type = models.QuestionType(typ)
	return nil
}

// Create appends a new question at the end of the page. Choice-type
// questions are created with one empty option so they never exist
// without a selectable choice. The question and any default option are
// inserted in one transaction; the returned question carries its
// options.
func (r *Repository) Create(ctx context.Context, surveyID, pageID uuid.UUID, title string, qType models.QuestionType, required bool, metadata map[string]any) (*models.Question, error) {
	if !qType.Valid() {
		return nil, ErrInvalidType
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const checkPage = `SELECT 1 FROM pages WHERE id = $1 AND survey_id = $2`
	var one int
	if err := tx.QueryRow(ctx, checkPage, pageID, surveyID).Scan(&one); err != nil {
		return nil, ErrNotInSurvey
	}

	const insert = `INSERT INTO questions (page_id, title, type, required, order_index, metadata)
		VALUES ($1, $2, $3, $4, (SELECT COUNT(*) FROM questions WHERE page_id = $1), $5)
		RETURNING ` + questionColumns
	var q models.Question
	if err := scanQuestion(tx.QueryRow(ctx, insert, pageID, title, string(qType), required, metadata), &q); err != nil {
		return nil, err
	}

	if qType.HasOptions() {
		const insertOpt = `INSERT INTO options (question_id, text, order_index) VALUES ($1, '', 0)
			RETURNING id, question_id, text, order_index`
		var opt models.Option
		if err := tx.QueryRow(ctx, insertOpt, q.ID).Scan(&opt.ID, &opt.QuestionID, &opt.Text, &opt.OrderIndex); err != nil {
			return nil, err
		}
		q.Options = []models.Option{opt}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &q, nil
}

// GetInSurvey returns a question by ID, requiring its page to belong
// to surveyID.
func (r *Repository) GetInSurvey(ctx context.Context, surveyID, questionID uuid.UUID) (*models.Question, error) {
	const q = `SELECT q.id, q.page_id, q.title, q.type, q.required, q.order_index, q.metadata
		FROM questions q JOIN pages p ON p.id = q.page_id
		WHERE q.id = $1 AND p.survey_id = $2`
	var out models.Question
	if err := scanQuestion(r.pool.QueryRow(ctx, q, questionID, surveyID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateFields applies an allow-listed partial update and returns the
// updated question with its options. Changing type keeps the option
// invariant: switching to a choice type with no options adds one empty
// option, switching to a text type removes them.
func (r *Repository) UpdateFields(ctx context.Context, surveyID, questionID uuid.UUID, fields map[string]any) (*models.Question, error) {
	if _, err := r.GetInSurvey(ctx, surveyID, questionID); err != nil {
		return nil, err
	}
	var newType *models.QuestionType
	if raw, ok := fields["type"]; ok {
		str, ok := raw.(string)
		if !ok || !models.QuestionType(str).Valid() {
			return nil, ErrInvalidType
		}
		t := models.QuestionType(str)
		newType = &t
		fields["type"] = str
	}

	stmt, args, err := sqlbuild.Update("questions", updateAllow, fields, "id", questionID, questionColumns, false)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var q models.Question
	if err := scanQuestion(tx.QueryRow(ctx, stmt, args...), &q); err != nil {
		return nil, err
	}

	if newType != nil {
		if newType.HasOptions() {
			const q2 = `INSERT INTO options (question_id, text, order_index)
				SELECT $1, '', 0 WHERE NOT EXISTS (SELECT 1 FROM options WHERE question_id = $1)`
			if _, err := tx.Exec(ctx, q2, questionID); err != nil {
				return nil, err
			}
		} else {
			const q2 = `DELETE FROM options WHERE question_id = $1`
			if _, err := tx.Exec(ctx, q2, questionID); err != nil {
				return nil, err
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	opts, err := r.listOptions(ctx, questionID)
	if err != nil {
		return nil, err
	}
	q.Options = opts
	return &q, nil
}

func (r *Repository) listOptions(ctx context.Context, questionID uuid.UUID) ([]models.Option, error) {
	const q = `SELECT id, question_id, text, order_index FROM options
		WHERE question_id = $1 ORDER BY order_index, id`
	rows, err := r.pool.Query(ctx, q, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Option
	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.OrderIndex); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// Delete removes a question from a survey; its options and answers
// cascade.
func (r *Repository) Delete(ctx context.Context, surveyID, questionID uuid.UUID) error {
	const q = `DELETE FROM questions WHERE id = $1
		AND page_id IN (SELECT id FROM pages WHERE survey_id = $2)`
	tag, err := r.pool.Exec(ctx, q, questionID, surveyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotInSurvey
	}
	return nil
}

// Reorder applies a full batch of order updates for one page's
// questions inside a transaction. Last write wins across batches.
func (r *Repository) Reorder(ctx context.Context, surveyID, pageID uuid.UUID, updates []models.OrderUpdate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const checkPage = `SELECT 1 FROM pages WHERE id = $1 AND survey_id = $2`
	var one int
	if err := tx.QueryRow(ctx, checkPage, pageID, surveyID).Scan(&one); err != nil {
		return ErrNotInSurvey
	}

	const q = `UPDATE questions SET order_index = $1 WHERE id = $2 AND page_id = $3`
	for _, u := range updates {
		tag, err := tx.Exec(ctx, q, u.OrderIndex, u.ID, pageID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrNotInSurvey, u.ID)
		}
	}
	return tx.Commit(ctx)
}
