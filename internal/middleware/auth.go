package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/trustweave/portal/internal/auth"
	"github.com/trustweave/portal/pkg/errors"
	"github.com/trustweave/portal/pkg/response"
)

const (
	CtxClaimsKey    = "authClaims"
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		if claims.SessionID != "" {
			c.Set(CtxSessionIDKey, claims.SessionID)
		}

		c.Next()
	}
}

// UserID extracts the authenticated user id from the request context.
func UserID(c *gin.Context) string {
	if id, ok := c.Get(CtxUserIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// ClaimsFrom extracts the validated JWT claims from the request context.
func ClaimsFrom(c *gin.Context) *iauth.Claims {
	if v, ok := c.Get(CtxClaimsKey); ok {
		if claims, ok := v.(*iauth.Claims); ok {
			return claims
		}
	}
	return nil
}
