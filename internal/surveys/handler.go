package surveys

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formloom/backend/internal/middleware"
	"github.com/formloom/backend/internal/models"
	"github.com/formloom/backend/pkg/response"
	"github.com/formloom/backend/pkg/sqlbuild"
	"github.com/formloom/backend/pkg/storage"
)

// CreateRequest is the body for POST /surveys.
type CreateRequest struct {
	Title           string  `json:"title" binding:"required"`
	Subtitle        string  `json:"subtitle"`
	Description     string  `json:"description"`
	CoverImage      string  `json:"cover_image"`
	BackgroundColor string  `json:"background_color"`
	Font            string  `json:"font"`
	StartsAt        *string `json:"starts_at"`
	EndsAt          *string `json:"ends_at"`
	MaxParticipants int     `json:"max_participants"`
	IsPublic        bool    `json:"is_public"`
}

// Handler handles survey HTTP endpoints.
type Handler struct {
	repo    *Repository
	storage *storage.S3
	logger  *zap.Logger
}

// NewHandler creates a survey handler.
func NewHandler(repo *Repository, st *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, storage: st, logger: logger}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// Create handles POST /surveys.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	s := &models.Survey{
		UserID:          userID,
		Title:           req.Title,
		Subtitle:        req.Subtitle,
		Description:     req.Description,
		CoverImage:      req.CoverImage,
		BackgroundColor: req.BackgroundColor,
		Font:            req.Font,
		MaxParticipants: req.MaxParticipants,
		IsPublic:        req.IsPublic,
	}
	if req.StartsAt != nil {
		t, err := parseTime(*req.StartsAt)
		if err != nil {
			response.BadRequest(c, "invalid starts_at")
			return
		}
		s.StartsAt = &t
	}
	if req.EndsAt != nil {
		t, err := parseTime(*req.EndsAt)
		if err != nil {
			response.BadRequest(c, "invalid ends_at")
			return
		}
		s.EndsAt = &t
	}
	if err := h.repo.Create(c.Request.Context(), s); err != nil {
		h.logger.Error("create survey", zap.Error(err))
		response.Internal(c, "failed to create survey")
		return
	}
	response.Created(c, s)
}

// List handles GET /surveys. Returns the current user's surveys.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list surveys")
		return
	}
	response.OK(c, list)
}

// Get handles GET /surveys/:id. Runs after RequireOwner, which already
// loaded the survey.
func (h *Handler) Get(c *gin.Context) {
	s := c.MustGet(ContextSurvey).(*models.Survey)
	response.OK(c, s)
}

// Update handles PATCH /surveys/:id. The body is an open field map;
// only allow-listed fields are accepted and unnamed fields keep their
// stored values.
func (h *Handler) Update(c *gin.Context) {
	s := c.MustGet(ContextSurvey).(*models.Survey)

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if len(fields) == 0 {
		response.BadRequest(c, "no fields to update")
		return
	}
	for _, name := range []string{"starts_at", "ends_at"} {
		raw, ok := fields[name]
		if !ok || raw == nil {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			response.BadRequest(c, "invalid "+name)
			return
		}
		t, err := parseTime(str)
		if err != nil {
			response.BadRequest(c, "invalid "+name)
			return
		}
		fields[name] = t
	}

	updated, err := h.repo.UpdateFields(c.Request.Context(), s.ID, fields)
	if err != nil {
		if errors.Is(err, sqlbuild.ErrUnknownField) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("update survey", zap.Error(err))
		response.Internal(c, "failed to update survey")
		return
	}
	response.OK(c, updated)
}

// Delete handles DELETE /surveys/:id.
func (h *Handler) Delete(c *gin.Context) {
	s := c.MustGet(ContextSurvey).(*models.Survey)
	if err := h.repo.Delete(c.Request.Context(), s.ID); err != nil {
		response.Internal(c, "failed to delete survey")
		return
	}
	response.NoContent(c)
}

// Detail handles GET /surveys/:id/detail. Returns the survey header
// together with the flat page/question/option rows; clients rebuild
// the tree with the builder package.
func (h *Handler) Detail(c *gin.Context) {
	s := c.MustGet(ContextSurvey).(*models.Survey)
	rows, err := h.repo.DetailRows(c.Request.Context(), s.ID)
	if err != nil {
		h.logger.Error("survey detail", zap.Error(err))
		response.Internal(c, "failed to load survey detail")
		return
	}
	response.OK(c, models.SurveyDetail{Survey: *s, Rows: rows})
}

// Clone handles POST /surveys/:id/clone.
func (h *Handler) Clone(c *gin.Context) {
	s := c.MustGet(ContextSurvey).(*models.Survey)
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	clone, err := h.repo.Clone(c.Request.Context(), s.ID, userID)
	if err != nil {
		h.logger.Error("clone survey", zap.Error(err))
		response.Internal(c, "failed to clone survey")
		return
	}
	response.Created(c, clone)
}

// UploadCover handles POST /surveys/:id/cover (multipart file field
// "file"). Stores the image in S3 and saves its public URL.
func (h *Handler) UploadCover(c *gin.Context) {
	s := c.MustGet(ContextSurvey).(*models.Survey)

	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	if header.Size > storage.MaxCoverFileSize {
		response.BadRequest(c, "file too large (max 5MB)")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !storage.ValidateCoverFileType(contentType, header.Filename) {
		response.BadRequest(c, "unsupported image type")
		return
	}

	f, err := header.Open()
	if err != nil {
		response.Internal(c, "failed to read file")
		return
	}
	defer f.Close()

	key := storage.CoverKey(s.ID.String(), header.Filename)
	url, err := h.storage.Upload(c.Request.Context(), h.storage.CoversBucket(), key, contentType, f, header.Size, true)
	if err != nil {
		h.logger.Error("upload cover", zap.Error(err), zap.String("survey_id", s.ID.String()))
		response.Internal(c, "failed to upload cover")
		return
	}
	if err := h.repo.SetCoverImage(c.Request.Context(), s.ID, url); err != nil {
		response.Internal(c, "failed to save cover url")
		return
	}
	if old := h.storage.ObjectKeyFromURL(h.storage.CoversBucket(), s.CoverImage); old != "" && old != key {
		if err := h.storage.DeleteObject(c.Request.Context(), h.storage.CoversBucket(), old); err != nil {
			h.logger.Warn("delete replaced cover", zap.Error(err), zap.String("key", old))
		}
	}
	response.OK(c, gin.H{"cover_image": url})
}
