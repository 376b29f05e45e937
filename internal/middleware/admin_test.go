package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/trustweave/portal/internal/auth"
	"github.com/trustweave/portal/internal/database/testutil"
	"github.com/trustweave/portal/internal/models"
)

func newAdminRouter(t *testing.T) (*gin.Engine, *gorm.DB, *iauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "trustweave-portal"})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/admin/ping", Auth(jwtSvc), RequireAdmin(db), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin": CurrentUser(c).Email})
	})

	return router, db, jwtSvc
}

func requestWithToken(t *testing.T, router *gin.Engine, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireAdminAllowsActiveAdmin(t *testing.T) {
	router, db, jwtSvc := newAdminRouter(t)

	admin := &models.User{Email: "admin@example.com", Password: "x", IsAdmin: true, IsActive: true}
	require.NoError(t, db.Create(admin).Error)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: admin.ID, IsAdmin: true})
	require.NoError(t, err)

	rec := requestWithToken(t, router, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "admin@example.com")
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	router, db, jwtSvc := newAdminRouter(t)

	user := &models.User{Email: "jane@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID})
	require.NoError(t, err)

	rec := requestWithToken(t, router, token)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdminIgnoresStaleTokenClaim(t *testing.T) {
	router, db, jwtSvc := newAdminRouter(t)

	// The token says admin but the database row does not. The row wins.
	user := &models.User{Email: "jane@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, IsAdmin: true})
	require.NoError(t, err)

	rec := requestWithToken(t, router, token)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdminRejectsDeactivatedAdmin(t *testing.T) {
	router, db, jwtSvc := newAdminRouter(t)

	admin := &models.User{Email: "admin@example.com", Password: "x", IsAdmin: true, IsActive: true}
	require.NoError(t, db.Create(admin).Error)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: admin.ID, IsAdmin: true})
	require.NoError(t, err)

	require.NoError(t, db.Model(admin).Update("is_active", false).Error)

	rec := requestWithToken(t, router, token)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdminRejectsMissingToken(t *testing.T) {
	router, _, _ := newAdminRouter(t)

	rec := requestWithToken(t, router, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
