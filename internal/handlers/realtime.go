package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/trustweave/portal/internal/middleware"
	"github.com/trustweave/portal/internal/models"
	"github.com/trustweave/portal/internal/realtime"
	"github.com/trustweave/portal/pkg/errors"
	"github.com/trustweave/portal/pkg/response"
)

// RealtimeHandler upgrades clients onto the record event stream.
type RealtimeHandler struct {
	db  *gorm.DB
	hub *realtime.Hub
}

func NewRealtimeHandler(db *gorm.DB, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{db: db, hub: hub}
}

// GET /api/realtime
func (h *RealtimeHandler) Serve(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	// The admin flag is loaded from the database at connect time so the
	// stream scope matches the user's current role, not the token's claim.
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Take(&user, "id = ?", userID).Error; err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	h.hub.Serve(user.ID, user.IsAdmin && user.IsActive, c.Writer, c.Request)
}
