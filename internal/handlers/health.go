package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/trustweave/portal/pkg/response"
)

// Health returns a status payload useful for readiness checks. The database
// ping makes the probe meaningful instead of always green.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			dbStatus = "unreachable"
		}

		code := http.StatusOK
		if dbStatus != "ok" {
			code = http.StatusServiceUnavailable
		}
		response.Success(c, code, gin.H{"status": "ok", "database": dbStatus})
	}
}
