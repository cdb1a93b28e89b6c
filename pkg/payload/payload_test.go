package payload

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"
	"time"

	"food-order-loadtest/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fivePercentItems() *models.MenuSnapshot {
	taxes := []models.Tax{{Id: "1", Name: "CGST", Rate: 2.5}, {Id: "2", Name: "SGST", Rate: 2.5}}
	return &models.MenuSnapshot{Items: []models.MenuItem{
		{Id: "a", Name: "Thali", Price: 100, Taxes: taxes},
		{Id: "b", Name: "Lassi", Price: 50, Taxes: taxes},
	}}
}

func TestBuildOrderDraft_TwoItemsDelivery(t *testing.T) {
	t.Parallel()

	draft := BuildOrderDraft("r-1", "c-1", fivePercentItems(), DraftOptions{
		ItemCount: 2,
		Rand:      rand.New(rand.NewSource(7)),
	})

	require.Len(t, draft.OrderItems, 2)
	assert.InDelta(t, 150.00, draft.SubTotal, 1e-9)
	assert.InDelta(t, 7.50, draft.TaxAmount, 1e-9)
	assert.InDelta(t, 53.10, draft.DeliveryCharge, 1e-9)
	assert.InDelta(t, 20.00, draft.PackagingCharge, 1e-9)
	assert.InDelta(t, 230.60, draft.GrandTotalAmount, 1e-9)
	assert.Equal(t, draft.GrandTotalAmount, draft.TotalAmount)
	assert.Equal(t, OrderTypeDelivery, draft.OrderType)
	assert.Equal(t, DefaultAddressId, draft.DeliveryDetails.AddressId)

	require.Len(t, draft.OrderTax, 2)
	assert.InDelta(t, 3.75, draft.OrderTax[0].Amount, 1e-9)
	assert.InDelta(t, 3.75, draft.OrderTax[1].Amount, 1e-9)
}

func TestBuildOrderDraft_PickupHasNoDeliveryCharge(t *testing.T) {
	t.Parallel()

	draft := BuildOrderDraft("r-1", "c-1", fivePercentItems(), DraftOptions{
		ItemCount: 2,
		OrderType: OrderTypePickup,
		Rand:      rand.New(rand.NewSource(1)),
	})

	assert.Zero(t, draft.DeliveryCharge)
	assert.Zero(t, draft.DeliveryDetails.DeliveryCharge)
	assert.InDelta(t, 177.50, draft.GrandTotalAmount, 1e-9)
}

func assertDraftAddsUp(t *testing.T, draft models.OrderDraft) {
	t.Helper()

	var sub, tax, lineTotals float64
	for _, item := range draft.OrderItems {
		sub += item.FinalPrice
		tax += item.TaxAmount
		var components float64
		for _, c := range item.Taxes {
			components += c.Amount
		}
		assert.InDelta(t, round2(components), item.TaxAmount, 1e-9, "item %s tax components", item.MenuItemId)
	}
	for _, line := range draft.OrderTax {
		lineTotals += line.Amount
	}

	assert.InDelta(t, round2(sub), draft.SubTotal, 1e-9)
	assert.InDelta(t, round2(tax), draft.TaxAmount, 1e-9)
	assert.InDelta(t, round2(lineTotals), draft.TaxAmount, 1e-9)

	want := round2(draft.SubTotal + draft.TaxAmount + draft.DeliveryCharge + draft.PackagingCharge)
	assert.InDelta(t, want, draft.GrandTotalAmount, 1e-9)
	assert.Equal(t, draft.GrandTotalAmount, draft.TotalAmount)
}

func TestBuildOrderDraft_TotalsInvariant(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		draft := BuildOrderDraft("r-1", "c-1", nil, DraftOptions{MaxQuantity: 3, Rand: r})

		require.GreaterOrEqual(t, len(draft.OrderItems), 1)
		require.LessOrEqual(t, len(draft.OrderItems), 2)
		assertDraftAddsUp(t, draft)
	}
}

func TestBuildOrderDraft_TotalsInvariantOnPaisePrices(t *testing.T) {
	t.Parallel()

	taxes := []models.Tax{{Id: "1", Name: "CGST", Rate: 2.5}, {Id: "2", Name: "SGST", Rate: 2.5}}
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		menu := &models.MenuSnapshot{Items: []models.MenuItem{
			{Id: "a", Price: float64(100+r.Intn(90000)) / 100, Taxes: taxes},
			{Id: "b", Price: float64(100+r.Intn(90000)) / 100, Taxes: taxes},
		}}
		draft := BuildOrderDraft("r-1", "c-1", menu, DraftOptions{ItemCount: 2, MaxQuantity: 3, Rand: r})
		assertDraftAddsUp(t, draft)
	}
}

func TestPercentOf_RoundsHalfUp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.82, percentOf(72.78, 2.5))
	assert.Equal(t, 7.41, percentOf(296.32, 2.5))
	assert.Equal(t, 2.5, percentOf(100, 2.5))
	assert.Equal(t, 0.01, percentOf(0.2, 2.5))
	assert.Equal(t, 0.0, percentOf(0.1, 2.5))
}

func TestBuildOrderDraft_RoundsTaxPerComponent(t *testing.T) {
	t.Parallel()

	taxes := []models.Tax{{Id: "1", Name: "CGST", Rate: 2.5}, {Id: "2", Name: "SGST", Rate: 2.5}}
	menu := &models.MenuSnapshot{Items: []models.MenuItem{
		{Id: "a", Price: 72.78, Taxes: taxes},
		{Id: "b", Price: 296.32, Taxes: taxes},
	}}
	draft := BuildOrderDraft("r-1", "c-1", menu, DraftOptions{ItemCount: 2, Rand: rand.New(rand.NewSource(1))})

	assert.InDelta(t, 369.10, draft.SubTotal, 1e-9)
	// 1.82 + 1.82 + 7.41 + 7.41
	assert.InDelta(t, 18.46, draft.TaxAmount, 1e-9)
	assert.InDelta(t, 460.66, draft.GrandTotalAmount, 1e-9)
	assertDraftAddsUp(t, draft)
}

func TestBuildOrderDraft_DistinctItems(t *testing.T) {
	t.Parallel()

	draft := BuildOrderDraft("r-1", "c-1", nil, DraftOptions{ItemCount: 4, Rand: rand.New(rand.NewSource(3))})
	seen := map[string]bool{}
	for _, item := range draft.OrderItems {
		assert.False(t, seen[item.MenuItemId], "duplicate item %s", item.MenuItemId)
		seen[item.MenuItemId] = true
	}
	assert.Len(t, seen, len(SampleItems))
}

func TestBuildDeliveryCallback_Sequence(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var logs []models.DeliveryLog
	var prevLogs []models.DeliveryLog
	var prevAt time.Time

	for i, status := range models.FulfillmentFull {
		cb, next := BuildDeliveryCallback(CallbackInput{
			OrderId:         "o-1",
			DeliveryOrderId: "d-1",
			ChannelOrderId:  "ch-1",
			Status:          status,
			PriorLogs:       logs,
			BaseTime:        base,
		})

		require.Len(t, next, i+1)
		if i > 0 {
			assert.Equal(t, prevLogs, next[:i], "history must be carried forward unchanged")
		}
		assert.Equal(t, status, next[i].Status)
		assert.Equal(t, next, cb.Fulfillment.Logs)

		at, err := time.Parse(time.RFC3339, cb.UpdatedAt)
		require.NoError(t, err)
		if i > 0 {
			assert.True(t, at.After(prevAt), "timestamps must increase: %s then %s", prevAt, at)
		}

		switch status {
		case models.FULFILLMENT_CREATED:
			assert.Nil(t, cb.Fulfillment.Rider)
			assert.Nil(t, cb.Fulfillment.Pickup.Location)
		case models.FULFILLMENT_OUT_FOR_PICKUP, models.FULFILLMENT_REACHED_PICKUP:
			assert.NotNil(t, cb.Fulfillment.Rider)
			assert.Nil(t, cb.Fulfillment.Pickup.Location)
			assert.Empty(t, cb.Fulfillment.Pickup.Timestamp)
		case models.FULFILLMENT_PICKED_UP, models.FULFILLMENT_OUT_FOR_DELIVERY, models.FULFILLMENT_REACHED_DELIVERY:
			assert.NotNil(t, cb.Fulfillment.Pickup.Location)
			assert.Nil(t, cb.Fulfillment.Drop.Location)
		case models.FULFILLMENT_DELIVERED:
			assert.NotNil(t, cb.Fulfillment.Drop.Location)
			assert.Equal(t, cb.UpdatedAt, cb.Fulfillment.Drop.Timestamp)
		}

		prevLogs = append([]models.DeliveryLog(nil), next...)
		prevAt = at
		logs = next
	}

	got := make([]models.FulfillmentStatus, 0, len(logs))
	for _, l := range logs {
		got = append(got, l.Status)
	}
	assert.Equal(t, models.FulfillmentFull, got)
}

func TestBuildDeliveryCallback_DoesNotAliasPriorLogs(t *testing.T) {
	t.Parallel()

	prior := make([]models.DeliveryLog, 1, 4)
	prior[0] = models.DeliveryLog{Status: models.FULFILLMENT_CREATED}

	_, a := BuildDeliveryCallback(CallbackInput{Status: models.FULFILLMENT_OUT_FOR_PICKUP, PriorLogs: prior})
	_, b := BuildDeliveryCallback(CallbackInput{Status: models.FULFILLMENT_PICKED_UP, PriorLogs: prior})

	assert.Equal(t, models.FULFILLMENT_OUT_FOR_PICKUP, a[1].Status)
	assert.Equal(t, models.FULFILLMENT_PICKED_UP, b[1].Status)
}

func TestMinuteOffsetIsStrictlyIncreasing(t *testing.T) {
	t.Parallel()

	last := math.MinInt
	for _, status := range models.FulfillmentFull {
		offset, ok := MinuteOffset[status]
		require.True(t, ok, "missing offset for %s", status)
		assert.Greater(t, offset, last)
		last = offset
	}
}

func TestBuildStatusUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		target string
		want   string
	}{
		{"ACCEPTED", "3"},
		{"READY_FOR_DELIVERY", "5"},
		{"REJECTED", "REJECTED"},
		{"accepted", "accepted"},
	}
	for _, tc := range tests {
		got := BuildStatusUpdate("msc-1", "o-9", tc.target)
		assert.Equal(t, tc.want, got.Status, tc.target)
		assert.Equal(t, "msc-1", got.RestID)
		assert.Equal(t, "o-9", got.OrderID)
	}
}

func TestLoginDefaults(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 123_000_000)
	req := BuildLoginRequest("", "", now)
	assert.Len(t, req.Mobile, 10)
	assert.NotEmpty(t, req.Name)

	verify := BuildOtpVerifyRequest("9999999999", "r-1", "")
	assert.Equal(t, DefaultOTP, verify.Otp)

	raw, err := json.Marshal(verify)
	require.NoError(t, err)
	assert.JSONEq(t, `{"mobile":"9999999999","restaurantId":"r-1","otp":"123456"}`, string(raw))
}

func TestGenerateActors_UniqueMobiles(t *testing.T) {
	t.Parallel()

	actors := GenerateActors(500, rand.New(rand.NewSource(9)))
	require.Len(t, actors, 500)
	seen := map[string]bool{}
	for i, a := range actors {
		assert.Equal(t, i, a.Index)
		assert.Len(t, a.Mobile, 10)
		assert.False(t, seen[a.Mobile])
		seen[a.Mobile] = true
	}
}
