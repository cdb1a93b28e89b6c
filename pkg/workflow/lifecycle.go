package workflow

import (
	"context"
	"net/http"
	"time"

	"food-order-loadtest/pkg/decode"
	"food-order-loadtest/pkg/models"
	"food-order-loadtest/pkg/payload"

	"go.uber.org/zap"
)

// Options select a lifecycle variant. The single/multi/with-fulfill flavours
// of the order flow are all expressed through these flags.
type Options struct {
	IncludeBrowsePhase          bool                       `yaml:"include_browse"`
	IncludeAddressPhase         bool                       `yaml:"include_address"`
	IncludeDeliveryFulfillPhase bool                       `yaml:"include_fulfill"`
	FulfillmentStatuses         []models.FulfillmentStatus `yaml:"fulfillment_statuses"`
	OrderType                   string                     `yaml:"order_type"`
	PaymentType                 string                     `yaml:"payment_type"`
	ItemCount                   int                        `yaml:"item_count"`
	MaxQuantity                 int                        `yaml:"max_quantity"`
	PaymentPoll                 PollConfig                 `yaml:"payment_poll"`
	TrackingPoll                PollConfig                 `yaml:"tracking_poll"`
	CallbackGap                 time.Duration              `yaml:"callback_gap"`
}

func DefaultOptions() Options {
	return Options{
		IncludeBrowsePhase:  true,
		IncludeAddressPhase: true,
		FulfillmentStatuses: models.FulfillmentShort,
		OrderType:           payload.OrderTypeDelivery,
		PaymentType:         payload.PaymentTypeOnline,
		PaymentPoll:         PollConfig{Interval: defaultPollInterval, Timeout: defaultPollTimeout},
		TrackingPoll:        PollConfig{Interval: defaultPollInterval, Timeout: defaultPollTimeout},
	}
}

const LifecycleName = "order_lifecycle"

// Lifecycle drives one order from login to DELIVERED.
type Lifecycle struct {
	env  *Env
	opts Options
}

func NewLifecycle(env Env, opts Options) *Lifecycle {
	env.normalize()
	if len(opts.FulfillmentStatuses) == 0 {
		opts.FulfillmentStatuses = models.FulfillmentShort
	}
	return &Lifecycle{env: &env, opts: opts}
}

func (l *Lifecycle) Name() string { return LifecycleName }

func (l *Lifecycle) Run(ctx context.Context, actor models.Actor) Result {
	t := newTracker(ctx, l.env, LifecycleName, actor)

	if l.opts.IncludeBrowsePhase {
		browse(ctx, t)
	}

	customerId, ok := login(ctx, t, actor)
	if !ok {
		return t.abort(PhaseLogin)
	}
	t.result.CustomerId = customerId

	addressId := payload.DefaultAddressId
	if l.opts.IncludeAddressPhase {
		addressId = l.addressAndQuote(ctx, t, customerId)
	}

	order, sharingCode, ok := l.createOrder(ctx, t, customerId, addressId)
	if !ok {
		return t.abort(PhaseCreateOrder)
	}
	orderId := order.OrderId
	t.result.OrderId = orderId

	payment, ok := l.createPayment(ctx, t, orderId)
	if !ok {
		return t.abort(PhaseCreatePayment)
	}
	t.result.PaymentOrderId = payment.PaymentOrderId

	payment = l.verifyPayment(ctx, t, &order, payment)
	t.result.PaymentVerified = payment.Verified
	l.posStatus(ctx, t, PhasePosAccept, sharingCode, orderId, models.ORDER_STATUS_ACCEPTED)
	l.posStatus(ctx, t, PhaseReadyForDelivery, sharingCode, orderId, models.ORDER_STATUS_READY_FOR_DELIVERY)

	if l.opts.IncludeDeliveryFulfillPhase {
		t.phase(PhaseDeliveryFulfill, func() bool {
			resp := l.env.Client.Do(ctx, http.MethodPost, fulfillPath(orderId), struct{}{})
			t.logCall("delivery fulfill", resp)
			return resp.OK()
		})
	}

	delivery := l.deliveryCallbacks(ctx, t, orderId)
	t.result.DeliveryOrderId = delivery.DeliveryOrderId
	t.result.ChannelOrderId = delivery.ChannelOrderId

	delivered := l.userTracking(ctx, t, &order)
	t.result.FinalStatus = order.Status
	t.result.Success = delivered
	if !delivered {
		t.result.FailedPhase = PhaseUserTracking
	}
	return t.finish()
}

func browse(ctx context.Context, t *tracker) bool {
	return t.phase(PhaseBrowse, func() bool {
		menu := t.env.Client.Do(ctx, http.MethodGet, menuPath(t.env.RestaurantId), nil)
		t.logCall("menu", menu)
		addons := t.env.Client.Do(ctx, http.MethodGet, addonsPath(t.env.RestaurantId), nil)
		t.logCall("addons", addons)
		return menu.OK() && addons.OK()
	})
}

// login issues the OTP request and verifies with the load-test OTP. Only the
// verification decides the outcome.
func login(ctx context.Context, t *tracker, actor models.Actor) (string, bool) {
	var customerId string
	ok := t.phase(PhaseLogin, func() bool {
		req := payload.BuildLoginRequest(actor.Name, actor.Mobile, t.env.now())
		otp := t.env.Client.Do(ctx, http.MethodPost, pathLoginOtp, req)
		t.logCall("otp request", otp)

		verify := t.env.Client.Do(ctx, http.MethodPost, pathLoginVerifyOtp,
			payload.BuildOtpVerifyRequest(req.Mobile, t.env.RestaurantId, t.env.OTP))
		t.logCall("otp verify", verify)
		if !verify.OK() {
			return false
		}

		id, err := decode.CustomerId(verify.Body)
		if err != nil {
			t.log.Debug("customer id not obtained", zap.Error(err))
			return false
		}
		customerId = id
		return true
	})
	return customerId, ok
}

// addressAndQuote resolves an address id, falling back to the default, and
// requests a delivery quote. A 404 quote means no quote is available.
func (l *Lifecycle) addressAndQuote(ctx context.Context, t *tracker, customerId string) string {
	addressId := payload.DefaultAddressId

	t.phase(PhaseAddressQuote, func() bool {
		existing := l.env.Client.Do(ctx, http.MethodGet, customerAddressesPath(customerId), nil)
		t.logCall("address list", existing)

		resolved := ""
		if existing.OK() {
			if id, err := decode.AddressId(existing.Body); err == nil {
				resolved = id
			}
		}
		if resolved == "" {
			created := l.env.Client.Do(ctx, http.MethodPost, pathAddress, payload.BuildAddressRequest(customerId))
			t.logCall("address create", created)
			if created.OK() {
				if id, err := decode.AddressId(created.Body); err == nil {
					resolved = id
				}
			}
		}
		if resolved != "" {
			addressId = resolved
		}

		quote := l.env.Client.Do(ctx, http.MethodGet, quotePath(l.env.RestaurantId, addressId), nil)
		t.logCall("delivery quote", quote)
		return okOrNotFound(quote)
	})

	return addressId
}

func (l *Lifecycle) createOrder(ctx context.Context, t *tracker, customerId, addressId string) (models.OrderState, string, bool) {
	var orderId, sharingCode string

	ok := t.phase(PhaseCreateOrder, func() bool {
		draft := payload.BuildOrderDraft(l.env.RestaurantId, customerId, l.env.Menu, payload.DraftOptions{
			OrderType:   l.opts.OrderType,
			PaymentType: l.opts.PaymentType,
			AddressId:   addressId,
			ItemCount:   l.opts.ItemCount,
			MaxQuantity: l.opts.MaxQuantity,
		})

		resp := l.env.Client.Do(ctx, http.MethodPost, pathOrder, draft)
		t.logCall("create order", resp)
		if !resp.OK() {
			return false
		}

		id, err := decode.OrderId(resp.Body)
		if err != nil {
			t.log.Debug("order id not obtained", zap.Error(err))
			return false
		}
		orderId = id
		if code, err := decode.MenuSharingCode(resp.Body); err == nil {
			sharingCode = code
		}
		return true
	})
	if !ok {
		return models.OrderState{}, "", false
	}

	l.env.Recorder.OrderCreated()
	if sharingCode == "" {
		sharingCode = l.env.MenuSharingCode
	}
	if sharingCode == "" {
		sharingCode = l.env.RestaurantId
	}
	return models.OrderState{OrderId: orderId, Status: models.ORDER_STATUS_CREATED}, sharingCode, true
}

func (l *Lifecycle) createPayment(ctx context.Context, t *tracker, orderId string) (models.PaymentState, bool) {
	var payment models.PaymentState
	ok := t.phase(PhaseCreatePayment, func() bool {
		resp := l.env.Client.Do(ctx, http.MethodPost, paymentPath(orderId), struct{}{})
		t.logCall("create payment", resp)
		if !resp.OK() {
			return false
		}
		id, err := decode.PaymentOrderId(resp.Body)
		if err != nil {
			t.log.Debug("payment order id not obtained", zap.Error(err))
			return false
		}
		payment.PaymentOrderId = id
		return true
	})
	return payment, ok
}

// verifyPayment is best effort. After verification the order is polled until
// it reaches PAID (or any later status) within the configured bound.
func (l *Lifecycle) verifyPayment(ctx context.Context, t *tracker, order *models.OrderState, payment models.PaymentState) models.PaymentState {
	payment.Verified = t.phase(PhaseVerifyPayment, func() bool {
		resp := l.env.Client.Do(ctx, http.MethodPost, paymentVerifyPath(order.OrderId),
			payload.BuildPaymentVerifyRequest(payment.PaymentOrderId))
		t.logCall("verify payment", resp)
		return resp.OK()
	})
	if !payment.Verified || l.opts.PaymentPoll.Timeout <= 0 {
		return payment
	}

	t.phase(PhasePaymentSettled, func() bool {
		status, paid := poll(ctx, l.opts.PaymentPoll, func() (models.OrderStatus, bool) {
			status, ok := l.orderStatus(ctx, t, order.OrderId)
			return status, ok && status.Rank() >= models.ORDER_STATUS_PAID.Rank()
		})
		if status != "" {
			order.Status = status
		}
		return paid
	})
	return payment
}

func (l *Lifecycle) posStatus(ctx context.Context, t *tracker, phase Phase, sharingCode, orderId string, target models.OrderStatus) bool {
	return t.phase(phase, func() bool {
		resp := l.env.Client.Do(ctx, http.MethodPost, pathPosCallback,
			payload.BuildStatusUpdate(sharingCode, orderId, string(target)))
		t.logCall("pos "+string(target), resp)
		return resp.OK()
	})
}

// deliveryCallbacks fetches the backend's delivery record for its ids, then
// replays the fulfillment sequence as partner webhooks, carrying the full log
// history in every payload.
func (l *Lifecycle) deliveryCallbacks(ctx context.Context, t *tracker, orderId string) models.DeliveryState {
	state := models.DeliveryState{}

	t.phase(PhaseDeliveryCallbacks, func() bool {
		record := l.env.Client.Do(ctx, http.MethodGet, deliveryStatusPath(orderId), nil)
		t.logCall("delivery status", record)
		if !record.OK() {
			return false
		}
		ids, err := decode.DeliveryRecord(record.Body)
		if err != nil {
			t.log.Debug("delivery record not obtained", zap.Error(err))
			return false
		}
		state.DeliveryOrderId = ids.DeliveryOrderId
		state.ChannelOrderId = ids.ChannelOrderId

		base := l.env.now()
		allOK := true
		for i, status := range l.opts.FulfillmentStatuses {
			if i > 0 {
				if err := sleepOrDone(ctx, l.opts.CallbackGap); err != nil {
					return false
				}
			}
			callback, logs := payload.BuildDeliveryCallback(payload.CallbackInput{
				OrderId:         orderId,
				DeliveryOrderId: state.DeliveryOrderId,
				ChannelOrderId:  state.ChannelOrderId,
				Status:          status,
				PriorLogs:       state.Logs,
				BaseTime:        base,
			})
			state.Logs = logs
			state.FulfillmentStatus = status

			resp := l.env.Client.Do(ctx, http.MethodPost, pathDeliveryHook, callback)
			t.logCall("delivery callback "+string(status), resp)
			allOK = allOK && resp.OK()
		}
		return allOK
	})

	return state
}

func (l *Lifecycle) orderStatus(ctx context.Context, t *tracker, orderId string) (models.OrderStatus, bool) {
	resp := l.env.Client.Do(ctx, http.MethodGet, orderPath(orderId), nil)
	t.logCall("order status", resp)
	if !resp.OK() {
		return "", false
	}
	status, err := decode.OrderStatus(resp.Body)
	if err != nil {
		return "", false
	}
	return status, true
}

// userTracking succeeds only when the backend reports exactly "DELIVERED".
func (l *Lifecycle) userTracking(ctx context.Context, t *tracker, order *models.OrderState) bool {
	orderId := order.OrderId
	delivered := t.phase(PhaseUserTracking, func() bool {
		status, done := poll(ctx, l.opts.TrackingPoll, func() (models.OrderStatus, bool) {
			status, ok := l.orderStatus(ctx, t, orderId)
			return status, ok && status == models.ORDER_STATUS_DELIVERED
		})
		if status != "" {
			order.Status = status
		}

		track := l.env.Client.Do(ctx, http.MethodGet, trackPath(orderId), nil)
		t.logCall("order track", track)
		rider := l.env.Client.Do(ctx, http.MethodGet, riderLocationPath(orderId), nil)
		t.logCall("rider location", rider)

		return done
	})

	if delivered {
		l.env.Recorder.OrderDelivered()
	}
	return delivered
}
