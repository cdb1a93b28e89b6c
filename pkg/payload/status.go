package payload

import (
	"fmt"

	"food-order-loadtest/pkg/models"
)

// posStatusCodes maps order statuses to the numeric codes the POS callback expects.
var posStatusCodes = map[string]string{
	string(models.ORDER_STATUS_ACCEPTED):           "3",
	string(models.ORDER_STATUS_READY_FOR_DELIVERY): "5",
}

const (
	minimumPrepTime     = 20
	minimumDeliveryTime = 30
)

// BuildStatusUpdate passes unknown status names through unchanged.
func BuildStatusUpdate(menuSharingCode, orderId, targetStatus string) models.PosStatusUpdate {
	status := targetStatus
	if code, ok := posStatusCodes[targetStatus]; ok {
		status = code
	}
	return models.PosStatusUpdate{
		RestID:              menuSharingCode,
		OrderID:             orderId,
		Status:              status,
		MinimumPrepTime:     minimumPrepTime,
		MinimumDeliveryTime: minimumDeliveryTime,
	}
}

// BuildPaymentVerifyRequest signs with a fixed mock signature; the backend skips
// signature checks in test mode.
func BuildPaymentVerifyRequest(paymentOrderId string) models.PaymentVerifyRequest {
	return models.PaymentVerifyRequest{
		PaymentId: fmt.Sprintf("pay_%s", paymentOrderId),
		OrderId:   paymentOrderId,
		Signature: "loadtest_mock_signature",
	}
}
