package pages

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formloom/backend/internal/models"
	"github.com/formloom/backend/pkg/sqlbuild"
)

// ErrNotInSurvey is returned when a page ID does not belong to the
// survey named in the route.
var ErrNotInSurvey = fmt.Errorf("page does not belong to survey")

const pageColumns = `id, survey_id, title, description, order_index`

var updateAllow = map[string]string{
	"title":       "title",
	"description": "description",
}

// Repository handles page persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a page repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create appends a new page at the end of the survey's page list.
func (r *Repository) Create(ctx context.Context, surveyID uuid.UUID, title, description string) (*models.Page, error) {
	const q = `INSERT INTO pages (survey_id, title, description, order_index)
		VALUES ($1, $2, $3, (SELECT COUNT(*) FROM pages WHERE survey_id = $1))
		RETURNING ` + pageColumns
	var p models.Page
	err := r.pool.QueryRow(ctx, q, surveyID, title, description).
		Scan(&p.ID, &p.SurveyID, &p.Title, &p.Description, &p.OrderIndex)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetInSurvey returns a page by ID, requiring it to belong to surveyID.
func (r *Repository) GetInSurvey(ctx context.Context, surveyID, pageID uuid.UUID) (*models.Page, error) {
	const q = `SELECT ` + pageColumns + ` FROM pages WHERE id = $1 AND survey_id = $2`
	var p models.Page
	err := r.pool.QueryRow(ctx, q, pageID, surveyID).
		Scan(&p.ID, &p.SurveyID, &p.Title, &p.Description, &p.OrderIndex)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateFields applies an allow-listed partial update and returns the
// updated page.
func (r *Repository) UpdateFields(ctx context.Context, surveyID, pageID uuid.UUID, fields map[string]any) (*models.Page, error) {
	if _, err := r.GetInSurvey(ctx, surveyID, pageID); err != nil {
		return nil, err
	}
	q, args, err := sqlbuild.Update("pages", updateAllow, fields, "id", pageID, pageColumns, false)
	if err != nil {
		return nil, err
	}
	var p models.Page
	err = r.pool.QueryRow(ctx, q, args...).
		Scan(&p.ID, &p.SurveyID, &p.Title, &p.Description, &p.OrderIndex)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a page from a survey; its questions and options
// cascade. Remaining pages keep their order indexes.
func (r *Repository) Delete(ctx context.Context, surveyID, pageID uuid.UUID) error {
	const q = `DELETE FROM pages WHERE id = $1 AND survey_id = $2`
	tag, err := r.pool.Exec(ctx, q, pageID, surveyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotInSurvey
	}
	return nil
}

// Reorder applies a full batch of order updates inside one transaction.
// Every page in the batch must belong to the survey or the whole batch
// rolls back. Later batches overwrite earlier ones (last write wins).
func (r *Repository) Reorder(ctx context.Context, surveyID uuid.UUID, updates []models.OrderUpdate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `UPDATE pages SET order_index = $1 WHERE id = $2 AND survey_id = $3`
	for _, u := range updates {
		tag, err := tx.Exec(ctx, q, u.OrderIndex, u.ID, surveyID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrNotInSurvey, u.ID)
		}
	}
	return tx.Commit(ctx)
}
