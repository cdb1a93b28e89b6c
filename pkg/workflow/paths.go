package workflow

import (
	"fmt"
	"net/url"
)

func menuPath(restaurantId string) string {
	return "/menu/category?restaurantId=" + url.QueryEscape(restaurantId)
}

func addonsPath(restaurantId string) string {
	return "/menu/addons?restaurantId=" + url.QueryEscape(restaurantId)
}

func quotePath(restaurantId, addressId string) string {
	q := url.Values{}
	q.Set("restaurantId", restaurantId)
	q.Set("addressId", addressId)
	return "/delivery/quote?" + q.Encode()
}

const (
	pathLoginOtp       = "/login/otp"
	pathLoginVerifyOtp = "/login/verify-otp"
	pathAddress        = "/address"
	pathOrder          = "/order"
	pathPosCallback    = "/pos/order/callback"
	pathDeliveryHook   = "/delivery/callback"
)

func customerAddressesPath(customerId string) string {
	return "/address/customer/" + url.PathEscape(customerId)
}

func paymentPath(orderId string) string {
	return "/payment/" + url.PathEscape(orderId)
}

func paymentVerifyPath(orderId string) string {
	return "/payment/verify/" + url.PathEscape(orderId)
}

func fulfillPath(orderId string) string {
	return "/delivery/fulfill/" + url.PathEscape(orderId)
}

func deliveryStatusPath(orderId string) string {
	return "/delivery/status/" + url.PathEscape(orderId)
}

func orderPath(orderId string) string {
	return "/order/" + url.PathEscape(orderId)
}

func trackPath(orderId string) string {
	return "/order/track/" + url.PathEscape(orderId)
}

func riderLocationPath(orderId string) string {
	return "/delivery/rider-location/" + url.PathEscape(orderId)
}

func customerOrdersPath(customerId string) string {
	return fmt.Sprintf("/order/customer/%s", url.PathEscape(customerId))
}

func restaurantPath(restaurantId string) string {
	return "/restaurant/" + url.PathEscape(restaurantId)
}
