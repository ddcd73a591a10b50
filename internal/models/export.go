package models

import (
	"time"

	"github.com/google/uuid"
)

// Export status values.
const (
	ExportPending    = "pending"
	ExportProcessing = "processing"
	ExportCompleted  = "completed"
	ExportFailed     = "failed"
)

// Export is a response CSV export job for a survey. Rows are written
// by the background worker and uploaded to S3.
type Export struct {
	ID        uuid.UUID `json:"id"`
	SurveyID  uuid.UUID `json:"survey_id"`
	Status    string    `json:"status"`
	ObjectKey *string   `json:"object_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
