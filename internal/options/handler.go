package options

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/formloom/backend/internal/models"
	"github.com/formloom/backend/internal/surveys"
	"github.com/formloom/backend/pkg/response"
)

// CreateRequest is the body for POST /surveys/:id/questions/:questionId/options.
type CreateRequest struct {
	Text string `json:"text"`
}

// UpdateRequest is the body for PATCH /surveys/:id/options/:optionId.
type UpdateRequest struct {
	Text string `json:"text" binding:"required"`
}

// ReorderRequest is the body for PUT /surveys/:id/questions/:questionId/options/reorder.
type ReorderRequest struct {
	Updates []models.OrderUpdate `json:"updates" binding:"required,min=1"`
}

// Handler handles option HTTP endpoints. All routes run after
// surveys.RequireOwner.
type Handler struct {
	repo *Repository
}

// NewHandler creates an option handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func contextSurvey(c *gin.Context) *models.Survey {
	return c.MustGet(surveys.ContextSurvey).(*models.Survey)
}

// Create handles POST /surveys/:id/questions/:questionId/options.
// Short and long text questions reject option creation.
func (h *Handler) Create(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := contextSurvey(c)
	o, err := h.repo.Create(c.Request.Context(), s.ID, questionID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoOptions):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrNotInSurvey):
			response.NotFound(c, "question not found")
		default:
			response.Internal(c, "failed to create option")
		}
		return
	}
	response.Created(c, o)
}

// Update handles PATCH /surveys/:id/options/:optionId.
func (h *Handler) Update(c *gin.Context) {
	optionID, err := uuid.Parse(c.Param("optionId"))
	if err != nil {
		response.BadRequest(c, "invalid option id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := contextSurvey(c)
	o, err := h.repo.UpdateText(c.Request.Context(), s.ID, optionID, req.Text)
	if err != nil {
		response.NotFound(c, "option not found")
		return
	}
	response.OK(c, o)
}

// Delete handles DELETE /surveys/:id/options/:optionId.
func (h *Handler) Delete(c *gin.Context) {
	optionID, err := uuid.Parse(c.Param("optionId"))
	if err != nil {
		response.BadRequest(c, "invalid option id")
		return
	}
	s := contextSurvey(c)
	if err := h.repo.Delete(c.Request.Context(), s.ID, optionID); err != nil {
		if errors.Is(err, ErrLastOption) {
			response.BadRequest(c, err.Error())
			return
		}
		response.NotFound(c, "option not found")
		return
	}
	response.NoContent(c)
}

// Reorder handles PUT /surveys/:id/questions/:questionId/options/reorder.
func (h *Handler) Reorder(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := contextSurvey(c)
	if err := h.repo.Reorder(c.Request.Context(), s.ID, questionID, req.Updates); err != nil {
		if errors.Is(err, ErrNotInSurvey) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Internal(c, "failed to reorder options")
		return
	}
	response.OK(c, gin.H{"updated": len(req.Updates)})
}
