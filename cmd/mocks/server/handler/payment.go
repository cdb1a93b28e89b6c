package handler

import (
	"net/http"
	"time"

	paymentprocessor "food-order-loadtest/cmd/mocks/server/payment-processor"
	"food-order-loadtest/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentStatus string

const (
	PAYMENT_CREATED    PaymentStatus = "created"
	PAYMENT_PROCESSING PaymentStatus = "processing"
	PAYMENT_CAPTURED   PaymentStatus = "captured"
	PAYMENT_FAILED     PaymentStatus = "failed"
	PAYMENT_REFUNDED   PaymentStatus = "refunded"
)

type PaymentOrder struct {
	Id            string        `json:"id"`
	Receipt       string        `json:"receipt"`
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	Status        PaymentStatus `json:"status"`
	PaymentId     string        `json:"payment_id,omitempty"`
	RefundId      string        `json:"refund_id,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

type CreatePaymentOrderRequest struct {
	Amount   int64  `json:"amount" binding:"required,gt=0"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type VerifyPaymentRequest struct {
	OrderId   string `json:"razorpay_order_id" binding:"required"`
	PaymentId string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

func (h *Handler) CreatePaymentOrder(c *gin.Context) {
	var req CreatePaymentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}

	order := PaymentOrder{
		Id:        "order_" + uuid.NewString()[:8],
		Receipt:   req.Receipt,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Status:    PAYMENT_CREATED,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Payments.Save(c, order); err != nil {
		h.storeError(c, "payment order", err)
		return
	}
	utils.SendSuccess(c, http.StatusCreated, "Payment order created", order)
}

func (h *Handler) FetchPaymentOrder(c *gin.Context) {
	order, err := h.Payments.Load(c, c.Param("id"))
	if err != nil {
		h.storeError(c, "payment order", err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, "Payment order", order)
}

// transition flips an order from one status to another under the handler
// lock and returns the updated record.
func (h *Handler) transition(c *gin.Context, id string, from, to PaymentStatus) (PaymentOrder, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	order, err := h.Payments.Load(c, id)
	if err != nil {
		h.storeError(c, "payment order", err)
		return order, false
	}
	if order.Status != from {
		utils.SendError(c, http.StatusConflict, "INVALID_STATE", "payment order is "+string(order.Status), "")
		return order, false
	}
	order.Status = to
	if err := h.Payments.Update(c, order); err != nil {
		h.storeError(c, "payment order", err)
		return order, false
	}
	return order, true
}

// CapturePayment runs the charge through the processor. The order is held in
// "processing" meanwhile so a concurrent capture is refused.
func (h *Handler) CapturePayment(c *gin.Context) {
	order, ok := h.transition(c, c.Param("id"), PAYMENT_CREATED, PAYMENT_PROCESSING)
	if !ok {
		return
	}

	result, err := h.Processor.ProcessPayment(c.Request.Context(), paymentprocessor.Charge{
		OrderId:  order.Id,
		Amount:   order.Amount,
		Currency: order.Currency,
	})
	if err != nil || !result.Success {
		order.Status = PAYMENT_FAILED
		order.FailureReason = result.FailureReason
	} else {
		order.Status = PAYMENT_CAPTURED
		order.PaymentId = result.TransactionId
	}
	if err := h.Payments.Update(c, order); err != nil {
		h.storeError(c, "payment order", err)
		return
	}

	if order.Status == PAYMENT_FAILED {
		utils.SendError(c, http.StatusPaymentRequired, "PAYMENT_FAILED", order.FailureReason, order.Id)
		return
	}
	utils.SendSuccess(c, http.StatusOK, "Payment captured", order)
}

func (h *Handler) RefundPayment(c *gin.Context) {
	order, ok := h.transition(c, c.Param("id"), PAYMENT_CAPTURED, PAYMENT_PROCESSING)
	if !ok {
		return
	}

	result, err := h.Processor.RevertPayment(c.Request.Context(), paymentprocessor.Charge{
		OrderId:  order.Id,
		Amount:   order.Amount,
		Currency: order.Currency,
	})
	if err != nil || !result.Success {
		// back to captured so the refund can be asked for again
		order.Status = PAYMENT_CAPTURED
		if uerr := h.Payments.Update(c, order); uerr != nil {
			h.log.Error("refund rollback failed, order left processing",
				zap.String("order", order.Id), zap.Error(uerr))
		}
		utils.SendInternalError(c, "refund failed")
		return
	}

	order.Status = PAYMENT_REFUNDED
	order.RefundId = result.TransactionId
	if err := h.Payments.Update(c, order); err != nil {
		h.storeError(c, "payment order", err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, "Payment refunded", order)
}

// VerifyPayment accepts any non-empty signature for a known order.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}
	if _, err := h.Payments.Load(c, req.OrderId); err != nil {
		h.storeError(c, "payment order", err)
		return
	}
	verified := req.Signature != ""
	status := http.StatusOK
	if !verified {
		status = http.StatusBadRequest
	}
	c.JSON(status, utils.Response{
		Success: verified,
		Data:    map[string]any{"order_id": req.OrderId, "verified": verified},
	})
}
