package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	paymentprocessor "food-order-loadtest/cmd/mocks/server/payment-processor"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// paymentStore holds one order and fails every Update after the first okUpdates.
type paymentStore struct {
	order     PaymentOrder
	okUpdates int
	updates   int
}

func (s *paymentStore) Load(ctx context.Context, id string) (PaymentOrder, error) {
	return s.order, nil
}

func (s *paymentStore) Save(ctx context.Context, p PaymentOrder) error {
	s.order = p
	return nil
}

func (s *paymentStore) Update(ctx context.Context, p PaymentOrder) error {
	s.updates++
	if s.updates > s.okUpdates {
		return errors.New("redis: connection refused")
	}
	s.order = p
	return nil
}

func (s *paymentStore) Delete(ctx context.Context, id string) error { return nil }

func (s *paymentStore) List(ctx context.Context) ([]PaymentOrder, error) {
	return []PaymentOrder{s.order}, nil
}

type refusingProcessor struct{}

func (refusingProcessor) ProcessPayment(ctx context.Context, charge paymentprocessor.Charge) (paymentprocessor.Result, error) {
	return paymentprocessor.Result{Success: true, OrderId: charge.OrderId}, nil
}

func (refusingProcessor) RevertPayment(ctx context.Context, charge paymentprocessor.Charge) (paymentprocessor.Result, error) {
	return paymentprocessor.Result{Success: false, OrderId: charge.OrderId, FailureReason: "gateway down"}, nil
}

func TestRefundPayment_RollbackFailureIsLogged(t *testing.T) {
	store := &paymentStore{
		order:     PaymentOrder{Id: "order_1", Amount: 46066, Currency: "INR", Status: PAYMENT_CAPTURED},
		okUpdates: 1,
	}
	core, logs := observer.New(zapcore.ErrorLevel)
	h := &Handler{Payments: store, Processor: refusingProcessor{}, log: zap.New(core)}

	r := gin.New()
	r.POST("/payments/:id/refund", h.RefundPayment)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments/order_1/refund", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 2, store.updates)
	assert.Equal(t, PAYMENT_PROCESSING, store.order.Status)

	entries := logs.FilterMessageSnippet("refund rollback failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "order_1", entries[0].ContextMap()["order"])
}

func TestRefundPayment_FailedRefundRestoresCaptured(t *testing.T) {
	store := &paymentStore{
		order:     PaymentOrder{Id: "order_2", Amount: 100, Currency: "INR", Status: PAYMENT_CAPTURED},
		okUpdates: 2,
	}
	core, logs := observer.New(zapcore.ErrorLevel)
	h := &Handler{Payments: store, Processor: refusingProcessor{}, log: zap.New(core)}

	r := gin.New()
	r.POST("/payments/:id/refund", h.RefundPayment)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments/order_2/refund", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, PAYMENT_CAPTURED, store.order.Status)
	assert.Zero(t, logs.Len())
}
