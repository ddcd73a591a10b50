package exports

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formloom/backend/internal/models"
)

const exportColumns = `id, survey_id, status, object_key, created_at, updated_at`

// Repository handles export job persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an export repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending export job row.
func (r *Repository) Create(ctx context.Context, surveyID uuid.UUID) (*models.Export, error) {
	const q = `INSERT INTO exports (survey_id) VALUES ($1) RETURNING ` + exportColumns
	var e models.Export
	err := r.pool.QueryRow(ctx, q, surveyID).Scan(&e.ID, &e.SurveyID, &e.Status, &e.ObjectKey, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetInSurvey returns an export by ID, requiring it to belong to the
// survey.
func (r *Repository) GetInSurvey(ctx context.Context, surveyID, exportID uuid.UUID) (*models.Export, error) {
	const q = `SELECT ` + exportColumns + ` FROM exports WHERE id = $1 AND survey_id = $2`
	var e models.Export
	err := r.pool.QueryRow(ctx, q, exportID, surveyID).Scan(&e.ID, &e.SurveyID, &e.Status, &e.ObjectKey, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByID returns an export by ID. Used by the worker.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Export, error) {
	const q = `SELECT ` + exportColumns + ` FROM exports WHERE id = $1`
	var e models.Export
	err := r.pool.QueryRow(ctx, q, id).Scan(&e.ID, &e.SurveyID, &e.Status, &e.ObjectKey, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListBySurvey returns all exports for a survey, newest first.
func (r *Repository) ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]models.Export, error) {
	const q = `SELECT ` + exportColumns + ` FROM exports WHERE survey_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Export
	for rows.Next() {
		var e models.Export
		if err := rows.Scan(&e.ID, &e.SurveyID, &e.Status, &e.ObjectKey, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// SetStatus updates an export's status, and its object key when one is
// provided.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string, objectKey *string) error {
	const q = `UPDATE exports SET status = $1, object_key = COALESCE($2, object_key), updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, status, objectKey, id)
	return err
}
