package pages

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/formloom/backend/internal/models"
	"github.com/formloom/backend/internal/surveys"
	"github.com/formloom/backend/pkg/response"
	"github.com/formloom/backend/pkg/sqlbuild"
)

// CreateRequest is the body for POST /surveys/:id/pages.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ReorderRequest is the body for PUT /surveys/:id/pages/reorder. The
// batch must contain the new index of every page being moved.
type ReorderRequest struct {
	Updates []models.OrderUpdate `json:"updates" binding:"required,min=1"`
}

// Handler handles page HTTP endpoints. All routes run after
// surveys.RequireOwner.
type Handler struct {
	repo *Repository
}

// NewHandler creates a page handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func contextSurvey(c *gin.Context) *models.Survey {
	return c.MustGet(surveys.ContextSurvey).(*models.Survey)
}

// Create handles POST /surveys/:id/pages. The new page is appended
// after the existing pages.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := contextSurvey(c)
	p, err := h.repo.Create(c.Request.Context(), s.ID, req.Title, req.Description)
	if err != nil {
		response.Internal(c, "failed to create page")
		return
	}
	response.Created(c, p)
}

// Update handles PATCH /surveys/:id/pages/:pageId with an open field
// map restricted to title and description.
func (h *Handler) Update(c *gin.Context) {
	pageID, err := uuid.Parse(c.Param("pageId"))
	if err != nil {
		response.BadRequest(c, "invalid page id")
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
	p, err := h.repo.UpdateFields(c.Request.Context(), s.ID, pageID, fields)
	if err != nil {
		if errors.Is(err, sqlbuild.ErrUnknownField) {
			response.BadRequest(c, err.Error())
			return
		}
		response.NotFound(c, "page not found")
		return
	}
	response.OK(c, p)
}

// Delete handles DELETE /surveys/:id/pages/:pageId.
func (h *Handler) Delete(c *gin.Context) {
	pageID, err := uuid.Parse(c.Param("pageId"))
	if err != nil {
		response.BadRequest(c, "invalid page id")
		return
	}
	s := contextSurvey(c)
	if err := h.repo.Delete(c.Request.Context(), s.ID, pageID); err != nil {
		response.NotFound(c, "page not found")
		return
	}
	response.NoContent(c)
}

// Reorder handles PUT /surveys/:id/pages/reorder with a full batch of
// new order indexes. The batch is applied atomically.
func (h *Handler) Reorder(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := contextSurvey(c)
	if err := h.repo.Reorder(c.Request.Context(), s.ID, req.Updates); err != nil {
		if errors.Is(err, ErrNotInSurvey) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Internal(c, "failed to reorder pages")
		return
	}
	response.OK(c, gin.H{"updated": len(req.Updates)})
}
