package workflow

import (
	"context"
	"net/http"

	"food-order-loadtest/pkg/decode"
	"food-order-loadtest/pkg/models"
	"food-order-loadtest/pkg/payload"
)

const (
	BrowseName   = "browse"
	TrackingName = "tracking"
	MiscName     = "misc"
)

// BrowseFlow reads the menu and addons without logging in.
type BrowseFlow struct {
	env *Env
}

func NewBrowseFlow(env Env) *BrowseFlow {
	env.normalize()
	return &BrowseFlow{env: &env}
}

func (b *BrowseFlow) Name() string { return BrowseName }

func (b *BrowseFlow) Run(ctx context.Context, actor models.Actor) Result {
	t := newTracker(ctx, b.env, BrowseName, actor)
	if !browse(ctx, t) {
		return t.abort(PhaseBrowse)
	}
	t.result.Success = true
	return t.finish()
}

// TrackingFlow logs in, lists the customer's orders and tracks the most
// recent one. A customer without orders still counts as a success. With a
// pinned customer id the login phase is skipped.
type TrackingFlow struct {
	env *Env
}

func NewTrackingFlow(env Env) *TrackingFlow {
	env.normalize()
	return &TrackingFlow{env: &env}
}

func (f *TrackingFlow) Name() string { return TrackingName }

func (f *TrackingFlow) Run(ctx context.Context, actor models.Actor) Result {
	t := newTracker(ctx, f.env, TrackingName, actor)

	customerId := f.env.CustomerId
	if customerId == "" {
		var ok bool
		if customerId, ok = login(ctx, t, actor); !ok {
			return t.abort(PhaseLogin)
		}
	}
	t.result.CustomerId = customerId

	var latest string
	ok := t.phase(PhaseOrderHistory, func() bool {
		resp := f.env.Client.Do(ctx, http.MethodGet, customerOrdersPath(customerId), nil)
		t.logCall("order history", resp)
		if !resp.OK() {
			return false
		}
		env, err := decode.Decode(resp.Body)
		if err != nil {
			return false
		}
		if env.Shape != decode.ShapeEmpty {
			latest, _ = decode.OrderId(resp.Body)
		}
		return true
	})
	if !ok {
		return t.abort(PhaseOrderHistory)
	}

	if latest != "" {
		t.result.OrderId = latest
		ok = t.phase(PhaseUserTracking, func() bool {
			status, found := f.currentStatus(ctx, t, latest)
			t.result.FinalStatus = status
			track := f.env.Client.Do(ctx, http.MethodGet, trackPath(latest), nil)
			t.logCall("order track", track)
			return found && track.OK()
		})
		if !ok {
			return t.abort(PhaseUserTracking)
		}
	}

	t.result.Success = true
	return t.finish()
}

func (f *TrackingFlow) currentStatus(ctx context.Context, t *tracker, orderId string) (models.OrderStatus, bool) {
	resp := f.env.Client.Do(ctx, http.MethodGet, orderPath(orderId), nil)
	t.logCall("order status", resp)
	if !resp.OK() {
		return "", false
	}
	status, err := decode.OrderStatus(resp.Body)
	return status, err == nil
}

// MiscFlow covers the restaurant info page and an anonymous delivery quote.
type MiscFlow struct {
	env *Env
}

func NewMiscFlow(env Env) *MiscFlow {
	env.normalize()
	return &MiscFlow{env: &env}
}

func (m *MiscFlow) Name() string { return MiscName }

func (m *MiscFlow) Run(ctx context.Context, actor models.Actor) Result {
	t := newTracker(ctx, m.env, MiscName, actor)

	ok := t.phase(PhaseRestaurantInfo, func() bool {
		resp := m.env.Client.Do(ctx, http.MethodGet, restaurantPath(m.env.RestaurantId), nil)
		t.logCall("restaurant info", resp)
		return resp.OK()
	})
	if !ok {
		return t.abort(PhaseRestaurantInfo)
	}

	ok = t.phase(PhaseAddressQuote, func() bool {
		resp := m.env.Client.Do(ctx, http.MethodGet, quotePath(m.env.RestaurantId, payload.DefaultAddressId), nil)
		t.logCall("delivery quote", resp)
		return okOrNotFound(resp)
	})
	if !ok {
		return t.abort(PhaseAddressQuote)
	}

	t.result.Success = true
	return t.finish()
}
