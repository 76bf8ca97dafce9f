package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workstream-hq/workstream/internal/auth"
	"github.com/workstream-hq/workstream/internal/models"
)

const testSecret = "test-secret"

func newAuthRouter(t *testing.T) (*gin.Engine, *models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	user := &models.User{
		ID:          uuid.New(),
		OrgID:       uuid.New(),
		Email:       "ada@example.com",
		DisplayName: "Ada",
		Role:        models.RoleMember,
	}

	engine := gin.New()
	engine.GET("/protected", Auth(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": GetUserID(c).String(),
			"org_id":  GetOrgID(c).String(),
			"name":    GetDisplayName(c),
		})
	})
	return engine, user
}

func TestAuthAcceptsValidBearer(t *testing.T) {
	router, user := newAuthRouter(t)
	token, err := auth.GenerateToken(user, testSecret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID.String())
	assert.Contains(t, w.Body.String(), user.OrgID.String())
	assert.Contains(t, w.Body.String(), "Ada")
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	router, _ := newAuthRouter(t)

	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsMalformedHeader(t *testing.T) {
	router, user := newAuthRouter(t)
	token, err := auth.GenerateToken(user, testSecret, time.Hour)
	require.NoError(t, err)

	for _, header := range []string{"Basic abc", token, "Bearer"} {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestAuthRejectsForgedToken(t *testing.T) {
	router, user := newAuthRouter(t)
	token, err := auth.GenerateToken(user, "wrong-secret", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGettersZeroValueWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Equal(t, uuid.Nil, GetUserID(c))
	assert.Equal(t, uuid.Nil, GetOrgID(c))
	assert.Equal(t, models.Role(""), GetRole(c))
	assert.Equal(t, "", GetDisplayName(c))
}
