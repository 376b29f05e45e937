package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trustweave/portal/internal/ledger"
	"github.com/trustweave/portal/internal/middleware"
	"github.com/trustweave/portal/internal/services"
	"github.com/trustweave/portal/internal/status"
	"github.com/trustweave/portal/pkg/errors"
	"github.com/trustweave/portal/pkg/response"
)

// RecordHandler serves verification records and ledger lookups.
type RecordHandler struct {
	records *services.RecordService
	anchor  ledger.Ledger
}

func NewRecordHandler(records *services.RecordService, anchor ledger.Ledger) *RecordHandler {
	return &RecordHandler{records: records, anchor: anchor}
}

// GET /api/records/mine
func (h *RecordHandler) Mine(c *gin.Context) {
	views, err := h.records.ListByUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	summary := map[status.Status]int{
		status.Verified: 0,
		status.Pending:  0,
		status.Rejected: 0,
	}
	for _, view := range views {
		summary[view.Status]++
	}

	response.Success(c, http.StatusOK, gin.H{"records": views, "summary": summary})
}

// GET /api/verification-status?email=...
//
// Resolves the public verification status for a submitter email. An unknown
// email still yields a stable answer derived from the email itself.
func (h *RecordHandler) VerificationStatus(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))

	st, err := h.anchor.VerificationStatus(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"email":   email,
		"status":  st,
		"display": status.ForDisplay(st),
	})
}

type verifyRequest struct {
	RecordID string `json:"recordId" validate:"required"`
}

// POST /api/ledger/verify
func (h *RecordHandler) VerifyRecord(c *gin.Context) {
	var req verifyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	record, err := h.records.Get(c.Request.Context(), req.RecordID)
	if err != nil {
		response.Error(c, err)
		return
	}

	// Applicants may only verify their own records; admins go through the
	// dashboard routes instead.
	if record.UserID != middleware.UserID(c) {
		response.Error(c, errors.ErrForbidden)
		return
	}

	attestation, err := h.anchor.VerifyRecord(c.Request.Context(), record.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, attestation)
}
