package models

import (
	"time"

	"github.com/google/uuid"
)

// Survey is the top-level container of pages, owned by a user.
type Survey struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Title           string     `json:"title"`
	Subtitle        string     `json:"subtitle"`
	Description     string     `json:"description"`
	CoverImage      string     `json:"cover_image"` // data URI or URL; opaque to the server
	BackgroundColor string     `json:"background_color"`
	Font            string     `json:"font"`
	StartsAt        *time.Time `json:"starts_at,omitempty"`
	EndsAt          *time.Time `json:"ends_at,omitempty"`
	MaxParticipants int        `json:"max_participants"` // 0 = unlimited
	IsPublic        bool       `json:"is_public"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SurveyRow is one row of the flattened survey detail join
// (page LEFT JOIN question LEFT JOIN option), pre-sorted by
// (page order, question order, option order). Question and option
// columns are nil for pages without questions and questions without
// options respectively.
type SurveyRow struct {
	PageID           uuid.UUID      `json:"page_id"`
	PageTitle        string         `json:"page_title"`
	PageDescription  string         `json:"page_description"`
	PageOrder        int            `json:"page_order"`
	QuestionID       *uuid.UUID     `json:"question_id,omitempty"`
	QuestionTitle    *string        `json:"question_title,omitempty"`
	QuestionType     *QuestionType  `json:"question_type,omitempty"`
	QuestionRequired *bool          `json:"question_required,omitempty"`
	QuestionOrder    *int           `json:"question_order,omitempty"`
	QuestionMetadata map[string]any `json:"question_metadata,omitempty"`
	OptionID         *uuid.UUID     `json:"option_id,omitempty"`
	OptionText       *string        `json:"option_text,omitempty"`
	OptionOrder      *int           `json:"option_order,omitempty"`
}

// SurveyDetail is the survey header together with the flat rows the
// builder flattens into a page tree.
type SurveyDetail struct {
	Survey Survey      `json:"survey"`
	Rows   []SurveyRow `json:"rows"`
}

// OrderUpdate assigns a new order index to a sibling entity. Reorder
// endpoints apply a full batch of these inside one transaction.
type OrderUpdate struct {
	ID         uuid.UUID `json:"id"`
	OrderIndex int       `json:"order_index"`
}
