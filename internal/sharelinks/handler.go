package sharelinks

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formloom/backend/internal/models"
	"github.com/formloom/backend/internal/responses"
	"github.com/formloom/backend/internal/surveys"
	"github.com/formloom/backend/pkg/builder"
	"github.com/formloom/backend/pkg/response"
)

// PublicSurvey is the participant-facing view served for a share link:
// the survey header with its full page tree, without owner metadata.
type PublicSurvey struct {
	ID              uuid.UUID     `json:"id"`
	Title           string        `json:"title"`
	Subtitle        string        `json:"subtitle"`
	Description     string        `json:"description"`
	CoverImage      string        `json:"cover_image"`
	BackgroundColor string        `json:"background_color"`
	Font            string        `json:"font"`
	Pages           []models.Page `json:"pages"`
}

// Handler handles share link HTTP endpoints.
type Handler struct {
	repo        *Repository
	surveyRepo  *surveys.Repository
	respHandler *responses.Handler
	baseURL     string
	logger      *zap.Logger
}

// NewHandler creates a share link handler. baseURL is the server's
// public base URL used to build shareable URLs.
func NewHandler(repo *Repository, surveyRepo *surveys.Repository, respHandler *responses.Handler, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, surveyRepo: surveyRepo, respHandler: respHandler, baseURL: baseURL, logger: logger}
}

func (h *Handler) withURL(link *models.ShareLink) *models.ShareLink {
	link.URL = h.baseURL + "/s/" + link.Slug
	return link
}

// Create handles POST /surveys/:id/share. Runs after RequireOwner.
func (h *Handler) Create(c *gin.Context) {
	s := c.MustGet(surveys.ContextSurvey).(*models.Survey)
	link, err := h.repo.Create(c.Request.Context(), s.ID)
	if err != nil {
		h.logger.Error("create share link", zap.Error(err))
		response.Internal(c, "failed to create share link")
		return
	}
	response.Created(c, h.withURL(link))
}

// List handles GET /surveys/:id/share. Runs after RequireOwner.
func (h *Handler) List(c *gin.Context) {
	s := c.MustGet(surveys.ContextSurvey).(*models.Survey)
	links, err := h.repo.ListBySurvey(c.Request.Context(), s.ID)
	if err != nil {
		response.Internal(c, "failed to list share links")
		return
	}
	for i := range links {
		h.withURL(&links[i])
	}
	response.OK(c, links)
}

// Delete handles DELETE /surveys/:id/share/:linkId. Runs after
// RequireOwner. Revoked links stop resolving immediately.
func (h *Handler) Delete(c *gin.Context) {
	linkID, err := uuid.Parse(c.Param("linkId"))
	if err != nil {
		response.BadRequest(c, "invalid share link id")
		return
	}
	s := c.MustGet(surveys.ContextSurvey).(*models.Survey)
	if err := h.repo.Delete(c.Request.Context(), s.ID, linkID); err != nil {
		response.NotFound(c, "share link not found")
		return
	}
	response.NoContent(c)
}

// Resolve handles GET /s/:slug. Public: returns the participant view
// of the shared survey with its nested page tree.
func (h *Handler) Resolve(c *gin.Context) {
	link, err := h.repo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.NotFound(c, "share link not found")
		return
	}
	s, err := h.surveyRepo.GetByID(c.Request.Context(), link.SurveyID)
	if err != nil {
		response.NotFound(c, "survey not found")
		return
	}
	rows, err := h.surveyRepo.DetailRows(c.Request.Context(), s.ID)
	if err != nil {
		h.logger.Error("resolve share link", zap.Error(err), zap.String("slug", link.Slug))
		response.Internal(c, "failed to load survey")
		return
	}
	response.OK(c, PublicSurvey{
		ID:              s.ID,
		Title:           s.Title,
		Subtitle:        s.Subtitle,
		Description:     s.Description,
		CoverImage:      s.CoverImage,
		BackgroundColor: s.BackgroundColor,
		Font:            s.Font,
		Pages:           builder.Flatten(rows),
	})
}

// Submit handles POST /s/:slug/responses. Public: share links accept
// submissions regardless of the survey's is_public flag.
func (h *Handler) Submit(c *gin.Context) {
	link, err := h.repo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.NotFound(c, "share link not found")
		return
	}
	s, err := h.surveyRepo.GetByID(c.Request.Context(), link.SurveyID)
	if err != nil {
		response.NotFound(c, "survey not found")
		return
	}
	h.respHandler.SubmitTo(c, s)
}
