package models

import "github.com/google/uuid"

// Option is a selectable choice belonging to a choice-type question.
// Text is opaque content; some clients store a small JSON object with
// a "title" field in it, which display consumers unwrap.
type Option struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Text       string    `json:"text"`
	OrderIndex int       `json:"order_index"`
}
