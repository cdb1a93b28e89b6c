package payload

import (
	"time"

	"food-order-loadtest/pkg/models"
)

const deliveryChannel = "loadtest"

// MinuteOffset places each fulfillment status on the callback timeline. Values
// strictly increase along models.FulfillmentFull.
var MinuteOffset = map[models.FulfillmentStatus]int{
	models.FULFILLMENT_CREATED:          0,
	models.FULFILLMENT_OUT_FOR_PICKUP:   2,
	models.FULFILLMENT_REACHED_PICKUP:   8,
	models.FULFILLMENT_PICKED_UP:        12,
	models.FULFILLMENT_OUT_FOR_DELIVERY: 14,
	models.FULFILLMENT_REACHED_DELIVERY: 28,
	models.FULFILLMENT_DELIVERED:        30,
}

var (
	pickupLocation = models.Location{Latitude: 12.9352, Longitude: 77.6245}
	dropLocation   = models.Location{Latitude: 12.9716, Longitude: 77.5946}
	riderLocation  = models.Location{Latitude: 12.9531, Longitude: 77.6101}
)

type CallbackInput struct {
	OrderId         string
	DeliveryOrderId string
	ChannelOrderId  string
	Status          models.FulfillmentStatus
	PriorLogs       []models.DeliveryLog
	BaseTime        time.Time
	// MinuteOffset overrides the table entry when non-nil.
	MinuteOffset *int
}

func timestamp(base time.Time, minutes int) string {
	return base.Add(time.Duration(minutes) * time.Minute).UTC().Format(time.RFC3339)
}

// BuildDeliveryCallback appends one log entry to the prior history and returns
// the webhook payload plus the new history. The caller threads the history into
// the next call.
func BuildDeliveryCallback(in CallbackInput) (models.DeliveryCallback, []models.DeliveryLog) {
	offset, ok := MinuteOffset[in.Status]
	if in.MinuteOffset != nil {
		offset = *in.MinuteOffset
	} else if !ok {
		offset = len(in.PriorLogs)
	}
	at := timestamp(in.BaseTime, offset)

	logs := make([]models.DeliveryLog, 0, len(in.PriorLogs)+1)
	logs = append(logs, in.PriorLogs...)
	logs = append(logs, models.DeliveryLog{Status: in.Status, CreatedAt: at})

	rank := in.Status.Rank()
	fulfillment := models.Fulfillment{
		Channel: models.FulfillmentChannel{Name: deliveryChannel, OrderId: in.ChannelOrderId},
		Logs:    logs,
		Status:  in.Status,
		Pickup:  models.Milestone{Address: "Restaurant"},
		Drop:    models.Milestone{Address: "Customer"},
	}

	if in.Status != models.FULFILLMENT_CREATED {
		loc := riderLocation
		fulfillment.Rider = &models.Rider{
			Name:     "Load Test Rider",
			Phone:    "9000000000",
			Location: &loc,
		}
	}
	if rank >= models.FULFILLMENT_PICKED_UP.Rank() {
		loc := pickupLocation
		fulfillment.Pickup.Location = &loc
		fulfillment.Pickup.Timestamp = timestamp(in.BaseTime, MinuteOffset[models.FULFILLMENT_PICKED_UP])
	}
	if in.Status == models.FULFILLMENT_DELIVERED {
		loc := dropLocation
		fulfillment.Drop.Location = &loc
		fulfillment.Drop.Timestamp = at
	}

	callback := models.DeliveryCallback{
		Id:          in.DeliveryOrderId,
		ReferenceId: in.OrderId,
		DDChannel:   deliveryChannel,
		Fulfillment: fulfillment,
		UpdatedAt:   at,
	}
	return callback, logs
}
