package exports

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formloom/backend/internal/models"
	"github.com/formloom/backend/internal/surveys"
	"github.com/formloom/backend/pkg/queue"
	"github.com/formloom/backend/pkg/response"
	"github.com/formloom/backend/pkg/storage"
)

// Handler handles export HTTP endpoints. All routes run after
// surveys.RequireOwner; the CSV itself is produced by the worker.
type Handler struct {
	repo    *Repository
	queue   *queue.Queue
	storage *storage.S3
	logger  *zap.Logger
}

// NewHandler creates an export handler.
func NewHandler(repo *Repository, q *queue.Queue, st *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, queue: q, storage: st, logger: logger}
}

// Create handles POST /surveys/:id/exports. Inserts a pending export
// row and enqueues the job for the worker.
func (h *Handler) Create(c *gin.Context) {
	s := c.MustGet(surveys.ContextSurvey).(*models.Survey)
	e, err := h.repo.Create(c.Request.Context(), s.ID)
	if err != nil {
		response.Internal(c, "failed to create export")
		return
	}
	err = h.queue.EnqueueExport(c.Request.Context(), queue.ExportPayload{ExportID: e.ID, SurveyID: s.ID})
	if err != nil {
		h.logger.Error("enqueue export", zap.Error(err), zap.String("export_id", e.ID.String()))
		_ = h.repo.SetStatus(c.Request.Context(), e.ID, models.ExportFailed, nil)
		response.Internal(c, "failed to enqueue export")
		return
	}
	response.Created(c, e)
}

// List handles GET /surveys/:id/exports.
func (h *Handler) List(c *gin.Context) {
	s := c.MustGet(surveys.ContextSurvey).(*models.Survey)
	list, err := h.repo.ListBySurvey(c.Request.Context(), s.ID)
	if err != nil {
		response.Internal(c, "failed to list exports")
		return
	}
	response.OK(c, list)
}

// DownloadURL handles GET /surveys/:id/exports/:exportId/download.
// Returns a short-lived presigned URL for completed exports.
func (h *Handler) DownloadURL(c *gin.Context) {
	exportID, err := uuid.Parse(c.Param("exportId"))
	if err != nil {
		response.BadRequest(c, "invalid export id")
		return
	}
	s := c.MustGet(surveys.ContextSurvey).(*models.Survey)
	e, err := h.repo.GetInSurvey(c.Request.Context(), s.ID, exportID)
	if err != nil {
		response.NotFound(c, "export not found")
		return
	}
	if e.Status != models.ExportCompleted || e.ObjectKey == nil {
		response.Conflict(c, "export is not ready")
		return
	}
	url, err := h.storage.GeneratePresignedDownloadURL(c.Request.Context(), h.storage.ExportsBucket(), *e.ObjectKey, h.storage.PresignExpire())
	if err != nil {
		h.logger.Error("presign export", zap.Error(err), zap.String("export_id", e.ID.String()))
		response.Internal(c, "failed to generate download url")
		return
	}
	response.OK(c, gin.H{"url": url, "expires_in_seconds": int(h.storage.PresignExpire().Seconds())})
}
