// Package workflow drives simulated actors through the backend's order
// lifecycle and the lighter browse/tracking journeys used for mixed traffic.
//
// A Workflow is run once per scheduler iteration. Identifiers produced by one
// phase are threaded into the next by value inside a single Run call, so
// concurrent actors never share mutable state beyond the read-only Env.
package workflow

import (
	"context"
	"net/http"
	"time"

	"food-order-loadtest/pkg/client"
	"food-order-loadtest/pkg/models"

	"go.uber.org/zap"
)

type Phase string

const (
	PhaseBrowse            Phase = "browse"
	PhaseLogin             Phase = "login"
	PhaseAddressQuote      Phase = "address_quote"
	PhaseCreateOrder       Phase = "create_order"
	PhaseCreatePayment     Phase = "create_payment"
	PhaseVerifyPayment     Phase = "verify_payment"
	PhasePaymentSettled    Phase = "payment_settled"
	PhasePosAccept         Phase = "pos_accept"
	PhaseReadyForDelivery  Phase = "ready_for_delivery"
	PhaseDeliveryFulfill   Phase = "delivery_fulfill"
	PhaseDeliveryCallbacks Phase = "delivery_callbacks"
	PhaseUserTracking      Phase = "user_tracking"
	PhaseOrderHistory      Phase = "order_history"
	PhaseRestaurantInfo    Phase = "restaurant_info"
)

// Recorder receives per-phase outcomes and order counters.
type Recorder interface {
	ObservePhase(phase string, d time.Duration, ok bool)
	OrderCreated()
	OrderDelivered()
}

// Env is constructed once per run and shared read-only by every actor.
type Env struct {
	Client          client.Doer
	Recorder        Recorder
	Logger          *zap.Logger
	Menu            *models.MenuSnapshot
	RestaurantId    string
	MenuSharingCode string
	// CustomerId, when set, pins the tracking journey to an existing customer
	// instead of logging each actor in.
	CustomerId string
	OTP        string
	Now        func() time.Time
}

func (e *Env) normalize() {
	if e.Logger == nil {
		e.Logger = zap.NewNop()
	}
	if e.Recorder == nil {
		e.Recorder = nopRecorder{}
	}
	if e.Menu == nil {
		e.Menu = &models.MenuSnapshot{}
	}
}

type nopRecorder struct{}

func (nopRecorder) ObservePhase(string, time.Duration, bool) {}
func (nopRecorder) OrderCreated()                            {}
func (nopRecorder) OrderDelivered()                          {}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

type Workflow interface {
	Name() string
	Run(ctx context.Context, actor models.Actor) Result
}

type PhaseResult struct {
	Phase    Phase         `json:"phase"`
	OK       bool          `json:"ok"`
	Duration time.Duration `json:"duration"`
}

type Result struct {
	Workflow        string             `json:"workflow"`
	Actor           models.Actor       `json:"actor"`
	Success         bool               `json:"success"`
	FailedPhase     Phase              `json:"failedPhase,omitempty"`
	Phases          []PhaseResult      `json:"phases"`
	CustomerId      string             `json:"customerId,omitempty"`
	OrderId         string             `json:"orderId,omitempty"`
	PaymentOrderId  string             `json:"paymentOrderId,omitempty"`
	PaymentVerified bool               `json:"paymentVerified,omitempty"`
	DeliveryOrderId string             `json:"deliveryOrderId,omitempty"`
	ChannelOrderId  string             `json:"channelOrderId,omitempty"`
	FinalStatus     models.OrderStatus `json:"finalStatus,omitempty"`
	Interrupted     bool               `json:"interrupted,omitempty"`
	Started         time.Time          `json:"started"`
	Duration        time.Duration      `json:"duration"`
}

// Completed lists the phases that succeeded, in execution order.
func (r Result) Completed() []Phase {
	out := make([]Phase, 0, len(r.Phases))
	for _, p := range r.Phases {
		if p.OK {
			out = append(out, p.Phase)
		}
	}
	return out
}

// tracker accumulates the result of one Run; it never outlives the call.
type tracker struct {
	ctx    context.Context
	env    *Env
	log    *zap.Logger
	result Result
}

func newTracker(ctx context.Context, env *Env, name string, actor models.Actor) *tracker {
	return &tracker{
		ctx: ctx,
		env: env,
		log: env.Logger.With(zap.String("workflow", name), zap.Int("actor", actor.Index)),
		result: Result{
			Workflow: name,
			Actor:    actor,
			Started:  time.Now(),
		},
	}
}

func (t *tracker) phase(name Phase, fn func() bool) bool {
	start := time.Now()
	ok := fn()
	elapsed := time.Since(start)

	// A phase cut short by the run deadline is not a backend failure.
	if !ok && t.ctx.Err() != nil {
		t.result.Interrupted = true
		return false
	}

	t.env.Recorder.ObservePhase(string(name), elapsed, ok)
	t.result.Phases = append(t.result.Phases, PhaseResult{Phase: name, OK: ok, Duration: elapsed})
	if !ok {
		t.log.Debug("phase failed", zap.String("phase", string(name)), zap.Duration("elapsed", elapsed))
	}
	return ok
}

func (t *tracker) abort(failed Phase) Result {
	t.result.Success = false
	t.result.FailedPhase = failed
	return t.finish()
}

func (t *tracker) finish() Result {
	t.result.Duration = time.Since(t.result.Started)
	return t.result
}

// logCall records a non-OK response with enough detail to tell 4xx/5xx/transport apart.
func (t *tracker) logCall(what string, resp client.Response) {
	if resp.OK() {
		return
	}
	fields := []zap.Field{zap.String("call", what), zap.Int("status", resp.Status), zap.Duration("elapsed", resp.Duration)}
	if resp.Err != nil {
		fields = append(fields, zap.Error(resp.Err))
	}
	t.log.Debug("call failed", fields...)
}

func okOrNotFound(resp client.Response) bool {
	return resp.Err == nil && (resp.Status == http.StatusOK || resp.Status == http.StatusNotFound)
}

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultPollTimeout  = 10 * time.Second
)

// PollConfig bounds a status poll. A zero Timeout means a single read.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

func sleepOrDone(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// poll calls read until done reports true or the deadline passes. It returns
// the last value read.
func poll[T any](ctx context.Context, conf PollConfig, read func() (T, bool)) (T, bool) {
	value, done := read()
	if done || conf.Timeout <= 0 {
		return value, done
	}

	interval := conf.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	deadline := time.Now().Add(conf.Timeout)

	for time.Now().Before(deadline) {
		if err := sleepOrDone(ctx, interval); err != nil {
			return value, false
		}
		value, done = read()
		if done {
			return value, true
		}
	}
	return value, false
}
