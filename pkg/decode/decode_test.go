package decode

import (
	"errors"
	"testing"

	svcerror "food-order-loadtest/pkg/error"
	"food-order-loadtest/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		shape Shape
		n     int
	}{
		{"single", `{"data":{"id":1}}`, ShapeSingleRecord, 1},
		{"array", `{"data":[{"id":1},{"id":2}]}`, ShapeRecordArray, 2},
		{"empty array", `{"data":[]}`, ShapeEmpty, 0},
		{"null", `{"data":null}`, ShapeEmpty, 0},
		{"missing", `{"success":true}`, ShapeEmpty, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env, err := Decode([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.shape, env.Shape)
			assert.Len(t, env.Records, tc.n)
		})
	}
}

func TestDecode_InvalidBody(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`<html>bad gateway</html>`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcerror.ErrDecodeError))

	_, err = Decode([]byte(`{"data":"nope"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcerror.ErrDecodeError))
}

func TestCustomerId_BothShapes(t *testing.T) {
	t.Parallel()

	id, err := CustomerId([]byte(`{"data":[{"id":17,"name":"x"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "17", id)

	id, err = CustomerId([]byte(`{"data":{"id":"cust-9"}}`))
	require.NoError(t, err)
	assert.Equal(t, "cust-9", id)
}

func TestFirstField_MissingIsAnError(t *testing.T) {
	t.Parallel()

	_, err := OrderId([]byte(`{"data":{"orderNo":"A1"}}`))
	require.Error(t, err)
	assert.Equal(t, "decode", svcerror.Kind(err))

	_, err = OrderId([]byte(`{"data":{"id":""}}`))
	require.Error(t, err)

	_, err = PaymentOrderId([]byte(`{"data":[]}`))
	require.Error(t, err)
}

func TestOrderStatus(t *testing.T) {
	t.Parallel()

	status, err := OrderStatus([]byte(`{"data":[{"id":3,"status":"DELIVERED"}]}`))
	require.NoError(t, err)
	assert.Equal(t, models.ORDER_STATUS_DELIVERED, status)
}

func TestDeliveryRecord(t *testing.T) {
	t.Parallel()

	body := `{"data":{"id":"dlv-1","fulfillment":{"channel":{"name":"x","order_id":99812}}}}`
	ids, err := DeliveryRecord([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "dlv-1", ids.DeliveryOrderId)
	assert.Equal(t, "99812", ids.ChannelOrderId)

	_, err = DeliveryRecord([]byte(`{"data":{"id":"dlv-1","fulfillment":{}}}`))
	require.Error(t, err)
}

func TestMenuSnapshot(t *testing.T) {
	t.Parallel()

	body := `{"data":[
		{"id":1,"name":"Mains","items":[
			{"id":11,"name":"Dal","price":120.5,"taxes":[{"id":1,"name":"CGST","rate":2.5},{"id":2,"name":"SGST","rate":"2.5"}]},
			{"id":12,"name":"Out of stock","price":0}
		]},
		{"id":2,"name":"Drinks","items":[
			{"id":21,"name":"Lime Soda","price":"45","taxes":[{"id":1,"name":"CGST","rate":2.5}]}
		]}
	]}`

	snap, err := MenuSnapshot([]byte(body))
	require.NoError(t, err)
	require.Len(t, snap.Categories, 2)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "11", snap.Items[0].Id)
	assert.InDelta(t, 120.5, snap.Items[0].Price, 1e-9)
	assert.InDelta(t, 2.5, snap.Items[0].Taxes[1].Rate, 1e-9)
	assert.InDelta(t, 45, snap.Items[1].Price, 1e-9)
	assert.Len(t, snap.TaxSummary, 2)

	_, err = MenuSnapshot([]byte(`{"data":[]}`))
	require.Error(t, err)
}
