package questions

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/formloom/backend/internal/models"
	"github.com/formloom/backend/internal/surveys"
	"github.com/formloom/backend/pkg/response"
	"github.com/formloom/backend/pkg/sqlbuild"
)

// CreateRequest is the body for POST /surveys/:id/pages/:pageId/questions.
type CreateRequest struct {
	Title    string         `json:"title"`
	Type     string         `json:"type" binding:"required"`
	Required bool           `json:"required"`
	Metadata map[string]any `json:"metadata"`
}

// ReorderRequest is the body for PUT /surveys/:id/pages/:pageId/questions/reorder.
type ReorderRequest struct {
	Updates []models.OrderUpdate `json:"updates" binding:"required,min=1"`
}

// Handler handles question HTTP endpoints. All routes run after
// surveys.RequireOwner.
type Handler struct {
	repo *Repository
}

// NewHandler creates a question handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func contextSurvey(c *gin.Context) *models.Survey {
	return c.MustGet(surveys.ContextSurvey).(*models.Survey)
}

// Create handles POST /surveys/:id/pages/:pageId/questions. The
// response includes the default option created for choice types.
func (h *Handler) Create(c *gin.Context) {
	pageID, err := uuid.Parse(c.Param("pageId"))
	if err != nil {
		response.BadRequest(c, "invalid page id")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := contextSurvey(c)
	q, err := h.repo.Create(c.Request.Context(), s.ID, pageID, req.Title, models.QuestionType(req.Type), req.Required, req.Metadata)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidType):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrNotInSurvey):
			response.NotFound(c, "page not found")
		default:
			response.Internal(c, "failed to create question")
		}
		return
	}
	response.Created(c, q)
}

// Update handles PATCH /surveys/:id/questions/:questionId with an open
// field map restricted to title, type, required and metadata.
func (h *Handler) Update(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if len(fields) == 0 {
		response.BadRequest(c, "no fields to update")
		return
	}
	s := contextSurvey(c)
	q, err := h.repo.UpdateFields(c.Request.Context(), s.ID, questionID, fields)
	if err != nil {
		switch {
		case errors.Is(err, sqlbuild.ErrUnknownField), errors.Is(err, ErrInvalidType):
			response.BadRequest(c, err.Error())
		default:
			response.NotFound(c, "question not found")
		}
		return
	}
	response.OK(c, q)
}

// Delete handles DELETE /surveys/:id/questions/:questionId.
func (h *Handler) Delete(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	s := contextSurvey(c)
	if err := h.repo.Delete(c.Request.Context(), s.ID, questionID); err != nil {
		response.NotFound(c, "question not found")
		return
	}
	response.NoContent(c)
}

// Reorder handles PUT /surveys/:id/pages/:pageId/questions/reorder.
func (h *Handler) Reorder(c *gin.Context) {
	pageID, err := uuid.Parse(c.Param("pageId"))
	if err != nil {
		response.BadRequest(c, "invalid page id")
		return
	}
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := contextSurvey(c)
	if err := h.repo.Reorder(c.Request.Context(), s.ID, pageID, req.Updates); err != nil {
		if errors.Is(err, ErrNotInSurvey) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Internal(c, "failed to reorder questions")
		return
	}
	response.OK(c, gin.H{"updated": len(req.Updates)})
}
