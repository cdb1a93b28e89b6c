package paymentprocessor

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

type MockPaymentProcessor struct {
	FailureRate    float64
	ProcessingTime time.Duration
}

func NewMockPaymentProcessor(failureRate float64, processingTime time.Duration) *MockPaymentProcessor {
	return &MockPaymentProcessor{
		FailureRate:    failureRate,
		ProcessingTime: processingTime,
	}
}

var reasons = []string{
	"Insufficient funds",
	"Card declined",
	"Invalid card number",
	"Expired card",
	"Transaction limit exceeded",
	"Bank rejected transaction",
}

func (m *MockPaymentProcessor) wait(ctx context.Context) error {
	if m.ProcessingTime <= 0 {
		return nil
	}
	t := time.NewTimer(m.ProcessingTime)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockPaymentProcessor) ProcessPayment(ctx context.Context, charge Charge) (Result, error) {
	if err := m.wait(ctx); err != nil {
		return Result{Success: false, OrderId: charge.OrderId, FailureReason: err.Error()}, err
	}

	if rand.Float64() < m.FailureRate {
		return Result{
			Success:       false,
			OrderId:       charge.OrderId,
			FailureReason: reasons[rand.Intn(len(reasons))],
		}, nil
	}

	return Result{
		Success:       true,
		OrderId:       charge.OrderId,
		TransactionId: fmt.Sprintf("pay_%s", uuid.NewString()[:8]),
		Amount:        charge.Amount,
		Currency:      charge.Currency,
	}, nil
}

// RevertPayment never fails on its own; only cancellation stops a refund.
func (m *MockPaymentProcessor) RevertPayment(ctx context.Context, charge Charge) (Result, error) {
	if err := m.wait(ctx); err != nil {
		return Result{Success: false, OrderId: charge.OrderId, FailureReason: err.Error()}, err
	}

	return Result{
		Success:       true,
		OrderId:       charge.OrderId,
		TransactionId: fmt.Sprintf("rfnd_%s", uuid.NewString()[:8]),
		Amount:        charge.Amount,
		Currency:      charge.Currency,
	}, nil
}
