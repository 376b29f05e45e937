package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/trustweave/portal/internal/middleware"
	"github.com/trustweave/portal/internal/models"
	"github.com/trustweave/portal/internal/services"
	"github.com/trustweave/portal/internal/storage"
	"github.com/trustweave/portal/internal/wizard"
	"github.com/trustweave/portal/pkg/errors"
	"github.com/trustweave/portal/pkg/response"
)

// WizardHandler exposes the verification wizard over HTTP.
type WizardHandler struct {
	db      *gorm.DB
	wizards *services.WizardService
}

func NewWizardHandler(db *gorm.DB, wizards *services.WizardService) *WizardHandler {
	return &WizardHandler{db: db, wizards: wizards}
}

// GET /api/wizard
func (h *WizardHandler) Draft(c *gin.Context) {
	view, err := h.wizards.Draft(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

type personalInfoRequest struct {
	FullName    string `json:"fullName" validate:"max=255"`
	DateOfBirth string `json:"dateOfBirth" validate:"max=64"`
	Nationality string `json:"nationality" validate:"max=128"`
	Address     string `json:"address" validate:"max=255"`
}

// PUT /api/wizard/personal-info
func (h *WizardHandler) SavePersonalInfo(c *gin.Context) {
	var req personalInfoRequest
	if !bindAndValidate(c, &req) {
		return
	}

	view, err := h.wizards.SavePersonalInfo(c.Request.Context(), middleware.UserID(c), wizard.PersonalInfo{
		FullName:    req.FullName,
		DateOfBirth: req.DateOfBirth,
		Nationality: req.Nationality,
		Address:     req.Address,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// POST /api/wizard/documents/:type
func (h *WizardHandler) UploadDocument(c *gin.Context) {
	slot := c.Param("type")

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errors.NewBadRequest("a file upload named 'file' is required"))
		return
	}

	src, err := file.Open()
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	defer src.Close()

	view, err := h.wizards.AttachDocument(c.Request.Context(), middleware.UserID(c), slot, storage.Upload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Content:     src,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// POST /api/wizard/advance
func (h *WizardHandler) Advance(c *gin.Context) {
	view, err := h.wizards.Advance(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// POST /api/wizard/back
func (h *WizardHandler) Back(c *gin.Context) {
	view, err := h.wizards.Back(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// POST /api/wizard/submit
func (h *WizardHandler) Submit(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Take(&user, "id = ?", userID).Error; err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	result, err := h.wizards.Submit(c.Request.Context(), &user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}
