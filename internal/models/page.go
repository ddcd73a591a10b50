package models

import "github.com/google/uuid"

// Page is an ordered group of questions within a survey.
type Page struct {
	ID          uuid.UUID  `json:"id"`
	SurveyID    uuid.UUID  `json:"survey_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OrderIndex  int        `json:"order_index"`
	Questions   []Question `json:"questions,omitempty"` // populated in nested views only
}
