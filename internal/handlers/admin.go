package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trustweave/portal/internal/dashboard"
	"github.com/trustweave/portal/internal/middleware"
	"github.com/trustweave/portal/internal/services"
	"github.com/trustweave/portal/internal/status"
	"github.com/trustweave/portal/pkg/errors"
	"github.com/trustweave/portal/pkg/response"
)

// AdminHandler serves the review dashboard for administrators.
type AdminHandler struct {
	records    *services.RecordService
	audit      *services.AuditService
	reconciler *dashboard.Reconciler
}

func NewAdminHandler(records *services.RecordService, audit *services.AuditService, reconciler *dashboard.Reconciler) *AdminHandler {
	return &AdminHandler{records: records, audit: audit, reconciler: reconciler}
}

// GET /api/admin/records
func (h *AdminHandler) Records(c *gin.Context) {
	response.Success(c, http.StatusOK, h.reconciler.Snapshot())
}

// POST /api/admin/records/refresh
func (h *AdminHandler) Refresh(c *gin.Context) {
	snapshot, err := h.reconciler.Refresh(c.Request.Context(), "manual")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, snapshot)
}

// GET /api/admin/records/:id
func (h *AdminHandler) Record(c *gin.Context) {
	view, err := h.records.GetView(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

type statusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=verified rejected"`
}

// PATCH /api/admin/records/:id/status
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	var req statusUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	next := status.Status(req.Status)
	if !next.Terminal() {
		response.Error(c, errors.ErrInvalidStatus)
		return
	}

	admin := middleware.CurrentUser(c)
	meta := services.DecisionMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if admin != nil {
		meta.AdminID = admin.ID
	}

	record, err := h.records.UpdateStatus(c.Request.Context(), c.Param("id"), next, meta)
	if err != nil {
		response.Error(c, err)
		return
	}

	// The cached dashboard row is only patched after the database write has
	// been confirmed; a converging refresh follows in the background.
	if view, viewErr := h.records.GetView(c.Request.Context(), record.ID); viewErr == nil {
		h.reconciler.ApplyDecision(view)
	}

	response.Success(c, http.StatusOK, gin.H{
		"id":     record.ID,
		"status": record.Status,
	})
}

// GET /api/admin/audit
func (h *AdminHandler) Audit(c *gin.Context) {
	entries, err := h.audit.List(c.Request.Context(), c.Query("action"), parseIntQuery(c, "limit", 100))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"entries": entries})
}
