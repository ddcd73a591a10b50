package responses

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formloom/backend/internal/models"
	"github.com/formloom/backend/pkg/builder"
)

var (
	// ErrClosed is returned when submitting outside the survey's
	// response window.
	ErrClosed = fmt.Errorf("survey is not accepting responses")
	// ErrFull is returned when the survey reached its participant limit.
	ErrFull = fmt.Errorf("survey participant limit reached")
	// ErrInvalidAnswer is returned when an answer references a question
	// or option outside the survey, or mismatches the question type.
	ErrInvalidAnswer = fmt.Errorf("invalid answer")
)

// AnswerInput is one submitted answer: an option reference for choice
// questions or free text for text questions.
type AnswerInput struct {
	QuestionID uuid.UUID  `json:"question_id" binding:"required"`
	OptionID   *uuid.UUID `json:"option_id"`
	Text       *string    `json:"text"`
}

// Repository handles response persistence and aggregation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a response repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Submit stores one response with its answers in a single transaction.
// The survey's window and participant limit are checked inside the
// transaction so a rejected submission leaves nothing behind.
func (r *Repository) Submit(ctx context.Context, survey *models.Survey, userID *uuid.UUID, answers []AnswerInput) (*models.Response, error) {
	now := time.Now()
	if survey.StartsAt != nil && now.Before(*survey.StartsAt) {
		return nil, ErrClosed
	}
	if survey.EndsAt != nil && now.After(*survey.EndsAt) {
		return nil, ErrClosed
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if survey.MaxParticipants > 0 {
		const countQ = `SELECT COUNT(*) FROM responses WHERE survey_id = $1`
		var count int
		if err := tx.QueryRow(ctx, countQ, survey.ID).Scan(&count); err != nil {
			return nil, err
		}
		if count >= survey.MaxParticipants {
			return nil, ErrFull
		}
	}

	const insertResp = `INSERT INTO responses (survey_id, user_id) VALUES ($1, $2)
		RETURNING id, survey_id, user_id, submitted_at`
	var resp models.Response
	if err := tx.QueryRow(ctx, insertResp, survey.ID, userID).Scan(&resp.ID, &resp.SurveyID, &resp.UserID, &resp.SubmittedAt); err != nil {
		return nil, err
	}

	const typeQ = `SELECT q.type FROM questions q JOIN pages p ON p.id = q.page_id
		WHERE q.id = $1 AND p.survey_id = $2`
	const optQ = `SELECT 1 FROM options WHERE id = $1 AND question_id = $2`
	const insertAns = `INSERT INTO answers (response_id, question_id, option_id, text)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for _, in := range answers {
		var typ string
		if err := tx.QueryRow(ctx, typeQ, in.QuestionID, survey.ID).Scan(&typ); err != nil {
			return nil, fmt.Errorf("%w: question %s not in survey", ErrInvalidAnswer, in.QuestionID)
		}
		qType := models.QuestionType(typ)
		if qType.HasOptions() {
			if in.OptionID == nil {
				return nil, fmt.Errorf("%w: question %s expects an option", ErrInvalidAnswer, in.QuestionID)
			}
			var one int
			if err := tx.QueryRow(ctx, optQ, *in.OptionID, in.QuestionID).Scan(&one); err != nil {
				return nil, fmt.Errorf("%w: option %s not in question", ErrInvalidAnswer, *in.OptionID)
			}
		} else {
			if in.Text == nil {
				return nil, fmt.Errorf("%w: question %s expects text", ErrInvalidAnswer, in.QuestionID)
			}
			in.OptionID = nil
		}
		a := models.Answer{ResponseID: resp.ID, QuestionID: in.QuestionID, OptionID: in.OptionID, Text: in.Text}
		if err := tx.QueryRow(ctx, insertAns, resp.ID, in.QuestionID, in.OptionID, in.Text).Scan(&a.ID); err != nil {
			return nil, err
		}
		resp.Answers = append(resp.Answers, a)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns all responses for a survey with their answers, oldest
// first.
func (r *Repository) List(ctx context.Context, surveyID uuid.UUID) ([]models.Response, error) {
	const q = `SELECT r.id, r.survey_id, r.user_id, r.submitted_at,
			a.id, a.question_id, a.option_id, a.text
		FROM responses r
		LEFT JOIN answers a ON a.response_id = r.id
		WHERE r.survey_id = $1
		ORDER BY r.submitted_at, r.id, a.id`
	rows, err := r.pool.Query(ctx, q, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Response
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var resp models.Response
		var answerID *uuid.UUID
		var questionID *uuid.UUID
		var optionID *uuid.UUID
		var text *string
		if err := rows.Scan(&resp.ID, &resp.SurveyID, &resp.UserID, &resp.SubmittedAt, &answerID, &questionID, &optionID, &text); err != nil {
			return nil, err
		}
		i, seen := index[resp.ID]
		if !seen {
			list = append(list, resp)
			i = len(list) - 1
			index[resp.ID] = i
		}
		if answerID != nil {
			list[i].Answers = append(list[i].Answers, models.Answer{
				ID:         *answerID,
				ResponseID: resp.ID,
				QuestionID: *questionID,
				OptionID:   optionID,
				Text:       text,
			})
		}
	}
	return list, rows.Err()
}

// Count returns the number of responses for a survey.
func (r *Repository) Count(ctx context.Context, surveyID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM responses WHERE survey_id = $1`
	var n int
	err := r.pool.QueryRow(ctx, q, surveyID).Scan(&n)
	return n, err
}

// Summary aggregates responses per question: option tallies for choice
// questions, collected texts for text questions. Questions appear in
// page and question order.
func (r *Repository) Summary(ctx context.Context, surveyID uuid.UUID) (*models.SurveySummary, error) {
	count, err := r.Count(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	summary := &models.SurveySummary{SurveyID: surveyID, ResponseCount: count, Questions: []models.QuestionSummary{}}
	index := map[uuid.UUID]int{}

	add := func(questionID uuid.UUID, title, typ string) int {
		i, seen := index[questionID]
		if !seen {
			summary.Questions = append(summary.Questions, models.QuestionSummary{
				QuestionID: questionID,
				Title:      title,
				Type:       models.QuestionType(typ),
			})
			i = len(summary.Questions) - 1
			index[questionID] = i
		}
		return i
	}

	const choiceQ = `SELECT q.id, q.title, q.type, o.id, o.text, COUNT(a.id)
		FROM questions q
		JOIN pages p ON p.id = q.page_id
		JOIN options o ON o.question_id = q.id
		LEFT JOIN answers a ON a.option_id = o.id
		WHERE p.survey_id = $1 AND q.type IN ('single', 'multiple')
		GROUP BY p.order_index, q.order_index, q.id, q.title, q.type, o.order_index, o.id, o.text
		ORDER BY p.order_index, q.order_index, q.id, o.order_index, o.id`
	rows, err := r.pool.Query(ctx, choiceQ, surveyID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var questionID, optionID uuid.UUID
		var title, typ, text string
		var n int
		if err := rows.Scan(&questionID, &title, &typ, &optionID, &text, &n); err != nil {
			rows.Close()
			return nil, err
		}
		i := add(questionID, title, typ)
		summary.Questions[i].Options = append(summary.Questions[i].Options, models.OptionCount{
			OptionID: optionID,
			Text:     builder.OptionTitle(text),
			Count:    n,
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const textQ = `SELECT q.id, q.title, q.type, a.text
		FROM questions q
		JOIN pages p ON p.id = q.page_id
		LEFT JOIN answers a ON a.question_id = q.id AND a.text IS NOT NULL
		WHERE p.survey_id = $1 AND q.type IN ('short', 'long')
		ORDER BY p.order_index, q.order_index, q.id, a.id`
	rows, err = r.pool.Query(ctx, textQ, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var questionID uuid.UUID
		var title, typ string
		var text *string
		if err := rows.Scan(&questionID, &title, &typ, &text); err != nil {
			return nil, err
		}
		i := add(questionID, title, typ)
		if text != nil {
			summary.Questions[i].Texts = append(summary.Questions[i].Texts, *text)
		}
	}
	return summary, rows.Err()
}
