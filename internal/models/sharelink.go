package models

import (
	"time"

	"github.com/google/uuid"
)

// ShareLink maps a public slug to a survey for link-based sharing.
type ShareLink struct {
	ID        uuid.UUID `json:"id"`
	SurveyID  uuid.UUID `json:"survey_id"`
	Slug      string    `json:"slug"`
	URL       string    `json:"url,omitempty"` // built from the server's public base URL
	CreatedAt time.Time `json:"created_at"`
}
