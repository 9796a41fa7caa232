package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artventure/academy-server/internal/service"
	appErrors "github.com/artventure/academy-server/pkg/errors"
	"github.com/artventure/academy-server/pkg/response"
)

// SettlementHandler exposes the settlement endpoint.
type SettlementHandler struct {
	settlements *service.SettlementService
}

// NewSettlementHandler constructs SettlementHandler.
func NewSettlementHandler(settlements *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlements: settlements}
}

// Settle godoc
// @Summary Settle a class selection into a paid enrollment
// @Tags Settlements
// @Accept json
// @Produce json
// @Param payload body service.SettleRequest true "Settlement payload"
// @Success 201 {object} response.Envelope
// @Failure 402 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /settlements [post]
func (h *SettlementHandler) Settle(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.settlements.Settle(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
