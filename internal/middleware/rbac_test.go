package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/artventure/academy-server/internal/models"
)

func performWithClaims(roles []models.UserRole, claims *models.JWTClaims) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/protected", nil)
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}

	handled := false
	RequireRoles(roles...)(c)
	if !c.IsAborted() {
		handled = true
		c.Status(http.StatusOK)
	}
	if handled {
		c.Writer.WriteHeaderNow()
	}
	return w
}

func TestRequireRolesAllowsMatchingRole(t *testing.T) {
	w := performWithClaims([]models.UserRole{models.RoleAdmin}, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesAllowsAnyOfSeveral(t *testing.T) {
	w := performWithClaims([]models.UserRole{models.RoleInstructor, models.RoleAdmin}, &models.JWTClaims{UserID: "u1", Role: models.RoleInstructor})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesForbidsOtherRole(t *testing.T) {
	w := performWithClaims([]models.UserRole{models.RoleAdmin}, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesRejectsMissingClaims(t *testing.T) {
	w := performWithClaims([]models.UserRole{models.RoleAdmin}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
