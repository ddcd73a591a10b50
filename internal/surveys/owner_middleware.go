package surveys

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/formloom/backend/internal/middleware"
	"github.com/formloom/backend/pkg/response"
)

// ContextSurvey is the context key for the loaded survey when ownership
// is enforced.
const ContextSurvey = "survey"

// RequireOwner validates that the current user owns the survey named by
// the :id route param and stores the loaded survey in context. Call
// after JWT. Nested page/question/option routes mount under
// /surveys/:id, so one middleware covers the whole authoring surface.
func RequireOwner(repo *Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		surveyID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid survey id")
			c.Abort()
			return
		}
		s, err := repo.GetByID(c.Request.Context(), surveyID)
		if err != nil {
			response.NotFound(c, "survey not found")
			c.Abort()
			return
		}
		userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		if s.UserID != userID {
			response.Forbidden(c, "not the survey owner")
			c.Abort()
			return
		}
		c.Set(ContextSurvey, s)
		c.Next()
	}
}
