package middleware

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/trustweave/portal/internal/models"
	"github.com/trustweave/portal/pkg/errors"
	"github.com/trustweave/portal/pkg/response"
)

// CtxUserKey carries the loaded user row for admin-gated handlers.
const CtxUserKey = "currentUser"

// RequireAdmin gates a route group to administrators. The role is read from
// the database on every request; the token's admin claim is never trusted on
// its own, so a revoked admin loses access as soon as the row changes.
func RequireAdmin(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).Take(&user, "id = ?", userID).Error; err != nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !user.IsAdmin || !user.IsActive {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		c.Set(CtxUserKey, &user)
		c.Next()
	}
}

// CurrentUser returns the user row loaded by RequireAdmin, if any.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CtxUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
