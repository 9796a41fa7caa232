package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/artventure/academy-server/internal/models"
	"github.com/artventure/academy-server/internal/service"
	appErrors "github.com/artventure/academy-server/pkg/errors"
	"github.com/artventure/academy-server/pkg/response"
)

// ClassHandler exposes class catalog and moderation endpoints.
type ClassHandler struct {
	classes *service.ClassService
}

// NewClassHandler constructs ClassHandler.
func NewClassHandler(classes *service.ClassService) *ClassHandler {
	return &ClassHandler{classes: classes}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Param status query string false "Filter by status (admin only)"
// @Param search query string false "Search by title"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	var filter models.ClassFilter
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	// Only admins may see unapproved classes.
	claims := claimsFromContext(c)
	if claims != nil && claims.Role == models.RoleAdmin {
		filter.Status = models.ClassStatus(strings.ToUpper(c.Query("status")))
	} else {
		filter.Status = models.ClassStatusApproved
	}

	classes, pagination, err := h.classes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// ListMine godoc
// @Summary List the calling instructor's classes
// @Tags Classes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classes/mine [get]
func (h *ClassHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.ClassFilter{InstructorID: claims.UserID}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	classes, pagination, err := h.classes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Create godoc
// @Summary Propose a new class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	class, err := h.classes.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Approve godoc
// @Summary Approve a class proposal
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/approve [put]
func (h *ClassHandler) Approve(c *gin.Context) {
	h.moderate(c, models.ClassStatusApproved)
}

// Deny godoc
// @Summary Deny a class proposal
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.ModerateClassRequest false "Optional feedback"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/deny [put]
func (h *ClassHandler) Deny(c *gin.Context) {
	h.moderate(c, models.ClassStatusDenied)
}

func (h *ClassHandler) moderate(c *gin.Context, status models.ClassStatus) {
	var req service.ModerateClassRequest
	_ = c.ShouldBindJSON(&req)

	class, err := h.classes.SetStatus(c.Request.Context(), c.Param("id"), status, req.Feedback)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}
