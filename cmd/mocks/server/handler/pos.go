package handler

import (
	"net/http"
	"time"

	"food-order-loadtest/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PosOrderPush struct {
	RestaurantId string `json:"restID" binding:"required"`
	OrderId      string `json:"orderID" binding:"required"`
	Items        []any  `json:"items"`
}

type PosStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) PushPosOrder(c *gin.Context) {
	var req PosOrderPush
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, "Order pushed", map[string]any{
		"pos_order_id": "pos_" + uuid.NewString()[:8],
		"order_id":     req.OrderId,
		"status":       "RECEIVED",
		"received_at":  time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) PosOrderStatus(c *gin.Context) {
	var req PosStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, "Status recorded", map[string]any{
		"order_id": c.Param("id"),
		"status":   req.Status,
	})
}
