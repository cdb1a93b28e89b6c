package paymentprocessor

import (
	"context"
	"fmt"
	"time"

	svcerror "food-order-loadtest/pkg/error"
)

// Charge is what the gateway asks the processor to move, in minor units.
type Charge struct {
	OrderId  string
	Amount   int64
	Currency string
}

type Result struct {
	Success       bool
	OrderId       string
	TransactionId string
	Amount        int64
	Currency      string
	FailureReason string
}

type Processor interface {
	ProcessPayment(ctx context.Context, charge Charge) (Result, error)
	RevertPayment(ctx context.Context, charge Charge) (Result, error)
}

type ProcessorType string

const (
	ProcessorMock ProcessorType = "mock"
)

type Options struct {
	FailureRate    float64
	ProcessingTime time.Duration
}

func NewProcessor(processorType ProcessorType, opts Options) (Processor, error) {
	var processor Processor
	switch processorType {
	case ProcessorMock, "":
		processor = NewMockPaymentProcessor(opts.FailureRate, opts.ProcessingTime)
	default:
		return nil, svcerror.New(
			svcerror.ErrSetupError,
			svcerror.WithOp("Processor.New"),
			svcerror.WithMsg(fmt.Sprintf("not available processor type: %s", string(processorType))),
		)
	}

	return processor, nil
}
