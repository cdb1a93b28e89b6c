package handler

import (
	"fmt"
	"net/http"
	"time"

	"food-order-loadtest/pkg/models"
	"food-order-loadtest/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const deliveryChannel = "mock-partner"

type DeliveryOrder struct {
	Id             string                   `json:"id"`
	ReferenceId    string                   `json:"reference_id"`
	ChannelOrderId string                   `json:"channel_order_id"`
	Status         models.FulfillmentStatus `json:"status"`
	Cancelled      bool                     `json:"cancelled"`
	Pickup         models.Milestone         `json:"pickup"`
	Drop           models.Milestone         `json:"drop"`
	Logs           []models.DeliveryLog     `json:"logs"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// view renders the record in the partner's webhook shape.
func (d DeliveryOrder) view() models.DeliveryCallback {
	return models.DeliveryCallback{
		Id:          d.Id,
		ReferenceId: d.ReferenceId,
		DDChannel:   deliveryChannel,
		Fulfillment: models.Fulfillment{
			Channel: models.FulfillmentChannel{Name: deliveryChannel, OrderId: d.ChannelOrderId},
			Logs:    d.Logs,
			Status:  d.Status,
			Pickup:  d.Pickup,
			Drop:    d.Drop,
		},
		UpdatedAt: d.UpdatedAt.Format(time.RFC3339),
	}
}

type QuoteRequest struct {
	RestaurantId string `json:"restaurant_id"`
	AddressId    string `json:"address_id"`
}

type CreateDeliveryRequest struct {
	ReferenceId string           `json:"reference_id" binding:"required"`
	Pickup      models.Milestone `json:"pickup"`
	Drop        models.Milestone `json:"drop"`
}

type FulfillRequest struct {
	Status models.FulfillmentStatus `json:"status"`
}

func (h *Handler) DeliveryQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, "Quote generated", map[string]any{
		"quote_id":      "qt_" + uuid.NewString()[:8],
		"amount":        53.10,
		"currency":      "INR",
		"eta_minutes":   30,
		"serviceable":   true,
		"restaurant_id": req.RestaurantId,
	})
}

func (h *Handler) CreateDelivery(c *gin.Context) {
	var req CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}

	now := time.Now().UTC()
	order := DeliveryOrder{
		Id:             uuid.NewString(),
		ReferenceId:    req.ReferenceId,
		ChannelOrderId: fmt.Sprintf("CH-%s", uuid.NewString()[:8]),
		Status:         models.FULFILLMENT_CREATED,
		Pickup:         req.Pickup,
		Drop:           req.Drop,
		Logs:           []models.DeliveryLog{{Status: models.FULFILLMENT_CREATED, CreatedAt: now.Format(time.RFC3339)}},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.Deliveries.Save(c, order); err != nil {
		h.storeError(c, "delivery", err)
		return
	}
	utils.SendSuccess(c, http.StatusCreated, "Delivery created", order.view())
}

// FulfillDelivery moves the delivery to the requested status, or to the next
// one in the full sequence when none is given. Status never moves backwards.
func (h *Handler) FulfillDelivery(c *gin.Context) {
	var req FulfillRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, err)
			return
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	order, err := h.Deliveries.Load(c, c.Param("id"))
	if err != nil {
		h.storeError(c, "delivery", err)
		return
	}
	if order.Cancelled {
		utils.SendError(c, http.StatusConflict, "CANCELLED", "delivery was cancelled", "")
		return
	}

	next := req.Status
	if next == "" {
		rank := order.Status.Rank()
		if rank+1 >= len(models.FulfillmentFull) {
			utils.SendError(c, http.StatusConflict, "COMPLETED", "delivery already completed", "")
			return
		}
		next = models.FulfillmentFull[rank+1]
	}
	if next.Rank() < 0 {
		utils.SendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "unknown status "+string(next), "")
		return
	}
	if next.Rank() <= order.Status.Rank() {
		utils.SendError(c, http.StatusConflict, "STALE_STATUS",
			fmt.Sprintf("delivery is already %s", order.Status), "")
		return
	}

	now := time.Now().UTC()
	order.Status = next
	order.UpdatedAt = now
	order.Logs = append(order.Logs, models.DeliveryLog{Status: next, CreatedAt: now.Format(time.RFC3339)})
	if next.Rank() >= models.FULFILLMENT_PICKED_UP.Rank() && order.Pickup.Timestamp == "" {
		order.Pickup.Timestamp = now.Format(time.RFC3339)
	}
	if next == models.FULFILLMENT_DELIVERED {
		order.Drop.Timestamp = now.Format(time.RFC3339)
	}

	if err := h.Deliveries.Update(c, order); err != nil {
		h.storeError(c, "delivery", err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, "Delivery updated", order.view())
}

func (h *Handler) DeliveryStatus(c *gin.Context) {
	order, err := h.Deliveries.Load(c, c.Param("id"))
	if err != nil {
		h.storeError(c, "delivery", err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, "Delivery status", order.view())
}

// DeliveryByReference looks a delivery up by the caller's own order id.
func (h *Handler) DeliveryByReference(c *gin.Context) {
	ref := c.Query("reference_id")
	if ref == "" {
		utils.SendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "reference_id is required", "")
		return
	}
	orders, err := h.Deliveries.List(c)
	if err != nil {
		h.storeError(c, "delivery", err)
		return
	}
	for _, o := range orders {
		if o.ReferenceId == ref {
			utils.SendSuccess(c, http.StatusOK, "Delivery status", o.view())
			return
		}
	}
	utils.SendNotFound(c, "delivery")
}

func (h *Handler) CancelDelivery(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	order, err := h.Deliveries.Load(c, c.Param("id"))
	if err != nil {
		h.storeError(c, "delivery", err)
		return
	}
	if order.Status == models.FULFILLMENT_DELIVERED {
		utils.SendError(c, http.StatusConflict, "COMPLETED", "delivery already completed", "")
		return
	}
	order.Cancelled = true
	order.UpdatedAt = time.Now().UTC()
	if err := h.Deliveries.Update(c, order); err != nil {
		h.storeError(c, "delivery", err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, "Delivery cancelled", order.view())
}
