package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/formloom/backend/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authedRouter(svc *auth.JWTService, required bool) (*gin.Engine, *uuid.UUID) {
	var seen uuid.UUID
	r := gin.New()
	mw := JWT(svc)
	if !required {
		mw = OptionalJWT(svc)
	}
	r.GET("/protected", mw, func(c *gin.Context) {
		if v, ok := c.Get(ContextUserID); ok {
			seen = v.(uuid.UUID)
		}
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func TestJWTSetsUserContext(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 1)
	userID := uuid.New()
	token, err := svc.Generate(userID, "a@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	r, seen := authedRouter(svc, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if *seen != userID {
		t.Errorf("context user = %s, want %s", *seen, userID)
	}
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 1)
	r, _ := authedRouter(svc, true)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer not-a-token"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, w.Code)
		}
	}
}

func TestOptionalJWTAllowsAnonymous(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 1)
	r, seen := authedRouter(svc, false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, anonymous request rejected", w.Code)
	}
	if *seen != uuid.Nil {
		t.Errorf("context user = %s, want unset", *seen)
	}
}

func TestOptionalJWTAttributesValidToken(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 1)
	userID := uuid.New()
	token, err := svc.Generate(userID, "a@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	r, seen := authedRouter(svc, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || *seen != userID {
		t.Errorf("status = %d, context user = %s", w.Code, *seen)
	}
}
