package responses

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formloom/backend/internal/middleware"
	"github.com/formloom/backend/internal/models"
	"github.com/formloom/backend/internal/realtime"
	"github.com/formloom/backend/internal/surveys"
	"github.com/formloom/backend/pkg/response"
)

// SubmitRequest is the body for POST /surveys/:id/responses and
// POST /s/:slug/responses.
type SubmitRequest struct {
	Answers []AnswerInput `json:"answers" binding:"required,min=1"`
}

// Handler handles response HTTP endpoints.
type Handler struct {
	repo       *Repository
	surveyRepo *surveys.Repository
	hub        *realtime.Hub
	logger     *zap.Logger
}

// NewHandler creates a response handler.
func NewHandler(repo *Repository, surveyRepo *surveys.Repository, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, surveyRepo: surveyRepo, hub: hub, logger: logger}
}

// SubmitTo validates and stores a submission for the given survey,
// broadcasting to the owner's live feed on success. Shared between the
// direct endpoint and the share-link endpoint.
func (h *Handler) SubmitTo(c *gin.Context, survey *models.Survey) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	// set by OptionalJWT when the participant is logged in
	var userID *uuid.UUID
	if v, ok := c.Get(middleware.ContextUserID); ok {
		id := v.(uuid.UUID)
		userID = &id
	}

	resp, err := h.repo.Submit(c.Request.Context(), survey, userID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, ErrClosed):
			response.Forbidden(c, err.Error())
		case errors.Is(err, ErrFull):
			response.Conflict(c, err.Error())
		case errors.Is(err, ErrInvalidAnswer):
			response.BadRequest(c, err.Error())
		default:
			h.logger.Error("submit response", zap.Error(err), zap.String("survey_id", survey.ID.String()))
			response.Internal(c, "failed to submit response")
		}
		return
	}

	if h.hub != nil {
		h.hub.PublishToSurvey(survey.ID, "response_submitted", gin.H{
			"response_id": resp.ID,
			"survey_id":   survey.ID,
		})
	}
	response.Created(c, resp)
}

// Submit handles POST /surveys/:id/responses. Only public surveys
// accept direct submissions; private ones are reached through share
// links.
func (h *Handler) Submit(c *gin.Context) {
	surveyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid survey id")
		return
	}
	survey, err := h.surveyRepo.GetByID(c.Request.Context(), surveyID)
	if err != nil {
		response.NotFound(c, "survey not found")
		return
	}
	if !survey.IsPublic {
		response.Forbidden(c, "survey is not public")
		return
	}
	h.SubmitTo(c, survey)
}

// List handles GET /surveys/:id/responses. Runs after RequireOwner.
func (h *Handler) List(c *gin.Context) {
	s := c.MustGet(surveys.ContextSurvey).(*models.Survey)
	list, err := h.repo.List(c.Request.Context(), s.ID)
	if err != nil {
		response.Internal(c, "failed to list responses")
		return
	}
	response.OK(c, list)
}

// Summary handles GET /surveys/:id/summary. Runs after RequireOwner.
func (h *Handler) Summary(c *gin.Context) {
	s := c.MustGet(surveys.ContextSurvey).(*models.Survey)
	summary, err := h.repo.Summary(c.Request.Context(), s.ID)
	if err != nil {
		h.logger.Error("survey summary", zap.Error(err), zap.String("survey_id", s.ID.String()))
		response.Internal(c, "failed to build summary")
		return
	}
	response.OK(c, summary)
}
