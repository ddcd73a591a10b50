package models

import "github.com/google/uuid"

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionShort    QuestionType = "short"
	QuestionLong     QuestionType = "long"
)

// HasOptions reports whether the type carries an option list.
func (t QuestionType) HasOptions() bool {
	return t == QuestionSingle || t == QuestionMultiple
}

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingle, QuestionMultiple, QuestionShort, QuestionLong:
		return true
	}
	return false
}

// Question is a prompt of a given type, optionally with options.
type Question struct {
	ID         uuid.UUID      `json:"id"`
	PageID     uuid.UUID      `json:"page_id"`
	Title      string         `json:"title"`
	Type       QuestionType   `json:"type"`
	Required   bool           `json:"required"`
	OrderIndex int            `json:"order_index"`
	Metadata   map[string]any `json:"metadata,omitempty"` // opaque key-value bag
	Options    []Option       `json:"options,omitempty"`  // empty for short/long
}
