package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artventure/academy-server/internal/service"
	appErrors "github.com/artventure/academy-server/pkg/errors"
	"github.com/artventure/academy-server/pkg/response"
)

// SelectionHandler exposes the student's pending class selections.
type SelectionHandler struct {
	selections *service.SelectionService
}

// NewSelectionHandler constructs SelectionHandler.
func NewSelectionHandler(selections *service.SelectionService) *SelectionHandler {
	return &SelectionHandler{selections: selections}
}

// Create godoc
// @Summary Select a class for later payment
// @Tags Selections
// @Accept json
// @Produce json
// @Param payload body service.SelectClassRequest true "Selection payload"
// @Success 201 {object} response.Envelope
// @Router /selections [post]
func (h *SelectionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SelectClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	selection, err := h.selections.Select(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, selection)
}

// List godoc
// @Summary List the caller's pending selections
// @Tags Selections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /selections [get]
func (h *SelectionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	selections, err := h.selections.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, selections, nil)
}

// Delete godoc
// @Summary Remove one of the caller's selections
// @Tags Selections
// @Param id path string true "Selection ID"
// @Success 204
// @Router /selections/{id} [delete]
func (h *SelectionHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.selections.Remove(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
