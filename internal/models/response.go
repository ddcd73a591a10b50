package models

import (
	"time"

	"github.com/google/uuid"
)

// Response is one participant submission for a survey.
type Response struct {
	ID          uuid.UUID  `json:"id"`
	SurveyID    uuid.UUID  `json:"survey_id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"` // nil for anonymous submissions
	SubmittedAt time.Time  `json:"submitted_at"`
	Answers     []Answer   `json:"answers,omitempty"`
}

// Answer is a single question answer within a response: either an
// option reference (choice questions) or free text (text questions).
type Answer struct {
	ID         uuid.UUID  `json:"id"`
	ResponseID uuid.UUID  `json:"response_id"`
	QuestionID uuid.UUID  `json:"question_id"`
	OptionID   *uuid.UUID `json:"option_id,omitempty"`
	Text       *string    `json:"text,omitempty"`
}

// OptionCount is one aggregated option tally in a survey summary.
type OptionCount struct {
	OptionID uuid.UUID `json:"option_id"`
	Text     string    `json:"text"`
	Count    int       `json:"count"`
}

// QuestionSummary aggregates responses for one question: option
// tallies for choice types, collected texts for text types.
type QuestionSummary struct {
	QuestionID uuid.UUID     `json:"question_id"`
	Title      string        `json:"title"`
	Type       QuestionType  `json:"type"`
	Options    []OptionCount `json:"options,omitempty"`
	Texts      []string      `json:"texts,omitempty"`
}

// SurveySummary is the aggregated results view for a survey.
type SurveySummary struct {
	SurveyID      uuid.UUID         `json:"survey_id"`
	ResponseCount int               `json:"response_count"`
	Questions     []QuestionSummary `json:"questions"`
}
