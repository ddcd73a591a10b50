package sharelinks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formloom/backend/internal/models"
)

const slugBytes = 6

// Repository handles share link persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a share link repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func newSlug() (string, error) {
	b := make([]byte, slugBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate slug: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create inserts a new share link with a random slug. Retries once on
// the unlikely slug collision.
func (r *Repository) Create(ctx context.Context, surveyID uuid.UUID) (*models.ShareLink, error) {
	const q = `INSERT INTO share_links (survey_id, slug) VALUES ($1, $2)
		RETURNING id, survey_id, slug, created_at`
	var link models.ShareLink
	for attempt := 0; attempt < 2; attempt++ {
		slug, err := newSlug()
		if err != nil {
			return nil, err
		}
		err = r.pool.QueryRow(ctx, q, surveyID, slug).Scan(&link.ID, &link.SurveyID, &link.Slug, &link.CreatedAt)
		if err == nil {
			return &link, nil
		}
		if attempt == 1 {
			return nil, err
		}
	}
	return &link, nil
}

// GetBySlug resolves a slug to its share link.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.ShareLink, error) {
	const q = `SELECT id, survey_id, slug, created_at FROM share_links WHERE slug = $1`
	var link models.ShareLink
	err := r.pool.QueryRow(ctx, q, slug).Scan(&link.ID, &link.SurveyID, &link.Slug, &link.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ListBySurvey returns all share links for a survey, newest first.
func (r *Repository) ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]models.ShareLink, error) {
	const q = `SELECT id, survey_id, slug, created_at FROM share_links
		WHERE survey_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.ShareLink
	for rows.Next() {
		var link models.ShareLink
		if err := rows.Scan(&link.ID, &link.SurveyID, &link.Slug, &link.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, link)
	}
	return list, rows.Err()
}

// Delete revokes a share link belonging to a survey.
func (r *Repository) Delete(ctx context.Context, surveyID, linkID uuid.UUID) error {
	const q = `DELETE FROM share_links WHERE id = $1 AND survey_id = $2`
	tag, err := r.pool.Exec(ctx, q, linkID, surveyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("share link not found")
	}
	return nil
}
