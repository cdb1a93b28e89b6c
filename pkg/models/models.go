package models

type OrderStatus string

const (
	ORDER_STATUS_CREATED            OrderStatus = "CREATED"
	ORDER_STATUS_PAYMENT_PENDING    OrderStatus = "PAYMENT_PENDING"
	ORDER_STATUS_PAID               OrderStatus = "PAID"
	ORDER_STATUS_ACCEPTED           OrderStatus = "ACCEPTED"
	ORDER_STATUS_READY_FOR_DELIVERY OrderStatus = "READY_FOR_DELIVERY"
	ORDER_STATUS_SEARCHING_RIDER    OrderStatus = "SEARCHING_RIDER"
	ORDER_STATUS_RIDER_ASSIGNED     OrderStatus = "RIDER_ASSIGNED"
	ORDER_STATUS_OUT_FOR_PICKUP     OrderStatus = "OUT_FOR_PICKUP"
	ORDER_STATUS_PICKED_UP          OrderStatus = "PICKED_UP"
	ORDER_STATUS_OUT_FOR_DELIVERY   OrderStatus = "OUT_FOR_DELIVERY"
	ORDER_STATUS_DELIVERED          OrderStatus = "DELIVERED"
)

var orderLifecycle = []OrderStatus{
	ORDER_STATUS_CREATED,
	ORDER_STATUS_PAYMENT_PENDING,
	ORDER_STATUS_PAID,
	ORDER_STATUS_ACCEPTED,
	ORDER_STATUS_READY_FOR_DELIVERY,
	ORDER_STATUS_SEARCHING_RIDER,
	ORDER_STATUS_RIDER_ASSIGNED,
	ORDER_STATUS_OUT_FOR_PICKUP,
	ORDER_STATUS_PICKED_UP,
	ORDER_STATUS_OUT_FOR_DELIVERY,
	ORDER_STATUS_DELIVERED,
}

// Rank returns the position of the status in the order lifecycle, or -1 when
// the backend reports a status outside of it.
func (s OrderStatus) Rank() int {
	for i, st := range orderLifecycle {
		if st == s {
			return i
		}
	}
	return -1
}

type FulfillmentStatus string

const (
	FULFILLMENT_CREATED          FulfillmentStatus = "CREATED"
	FULFILLMENT_OUT_FOR_PICKUP   FulfillmentStatus = "OUT_FOR_PICKUP"
	FULFILLMENT_REACHED_PICKUP   FulfillmentStatus = "REACHED_PICKUP"
	FULFILLMENT_PICKED_UP        FulfillmentStatus = "PICKED_UP"
	FULFILLMENT_OUT_FOR_DELIVERY FulfillmentStatus = "OUT_FOR_DELIVERY"
	FULFILLMENT_REACHED_DELIVERY FulfillmentStatus = "REACHED_DELIVERY"
	FULFILLMENT_DELIVERED        FulfillmentStatus = "DELIVERED"
)

// FulfillmentFull is the delivery-partner sequence including the arrival
// milestones at pickup and drop.
var FulfillmentFull = []FulfillmentStatus{
	FULFILLMENT_CREATED,
	FULFILLMENT_OUT_FOR_PICKUP,
	FULFILLMENT_REACHED_PICKUP,
	FULFILLMENT_PICKED_UP,
	FULFILLMENT_OUT_FOR_DELIVERY,
	FULFILLMENT_REACHED_DELIVERY,
	FULFILLMENT_DELIVERED,
}

var FulfillmentShort = []FulfillmentStatus{
	FULFILLMENT_CREATED,
	FULFILLMENT_OUT_FOR_PICKUP,
	FULFILLMENT_PICKED_UP,
	FULFILLMENT_OUT_FOR_DELIVERY,
	FULFILLMENT_DELIVERED,
}

func (s FulfillmentStatus) Rank() int {
	for i, st := range FulfillmentFull {
		if st == s {
			return i
		}
	}
	return -1
}

type Actor struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
}

type Tax struct {
	Id   string  `json:"id"`
	Name string  `json:"name"`
	Rate float64 `json:"rate"`
}

type MenuItem struct {
	Id    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Taxes []Tax   `json:"taxes"`
}

type MenuCategory struct {
	Id    string     `json:"id"`
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

// MenuSnapshot is fetched once per run and shared read-only across actors.
type MenuSnapshot struct {
	Categories []MenuCategory `json:"categories"`
	Items      []MenuItem     `json:"items"`
	TaxSummary []Tax          `json:"taxSummary"`
}

func (m *MenuSnapshot) Empty() bool {
	return m == nil || len(m.Items) == 0
}

type OrderItemTax struct {
	TaxId  string  `json:"taxId"`
	Name   string  `json:"name"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

type OrderItem struct {
	MenuItemId string         `json:"menuItemId"`
	Name       string         `json:"name"`
	Quantity   int            `json:"quantity"`
	Price      float64        `json:"price"`
	FinalPrice float64        `json:"finalPrice"`
	TaxAmount  float64        `json:"taxAmount"`
	Taxes      []OrderItemTax `json:"taxes"`
}

type OrderTax struct {
	TaxId  string  `json:"taxId"`
	Name   string  `json:"name"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

type DeliveryDetails struct {
	AddressId      string  `json:"addressId"`
	DeliveryCharge float64 `json:"deliveryCharge"`
}

type OrderDraft struct {
	RestaurantId     string          `json:"restaurantId"`
	CustomerId       string          `json:"customerId"`
	OrderType        string          `json:"orderType"`
	PaymentType      string          `json:"paymentType"`
	OrderItems       []OrderItem     `json:"orderItems"`
	OrderTax         []OrderTax      `json:"orderTax"`
	DeliveryDetails  DeliveryDetails `json:"deliveryDetails"`
	SubTotal         float64         `json:"subTotalAmount"`
	TaxAmount        float64         `json:"taxAmount"`
	DeliveryCharge   float64         `json:"deliveryCharge"`
	PackagingCharge  float64         `json:"packagingCharge"`
	TotalAmount      float64         `json:"totalAmount"`
	GrandTotalAmount float64         `json:"grandTotalAmount"`
}

type OrderState struct {
	OrderId string      `json:"orderId"`
	Status  OrderStatus `json:"status"`
}

type PaymentState struct {
	PaymentOrderId string `json:"paymentOrderId"`
	Verified       bool   `json:"verified"`
}

// DeliveryState carries the full callback history; each callback must resend
// every earlier log entry.
type DeliveryState struct {
	DeliveryOrderId   string            `json:"deliveryOrderId"`
	ChannelOrderId    string            `json:"channelOrderId"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillmentStatus"`
	Logs              []DeliveryLog     `json:"logs"`
}

type LoginRequest struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
}

type OtpVerifyRequest struct {
	Mobile       string `json:"mobile"`
	RestaurantId string `json:"restaurantId"`
	Otp          string `json:"otp"`
}

type AddressRequest struct {
	CustomerId string  `json:"customerId"`
	Label      string  `json:"label"`
	Line1      string  `json:"addressLine1"`
	City       string  `json:"city"`
	Pincode    string  `json:"pincode"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

type PaymentVerifyRequest struct {
	PaymentId string `json:"razorpay_payment_id"`
	OrderId   string `json:"razorpayOrderId"`
	Signature string `json:"razorpay_signature"`
}

type PosStatusUpdate struct {
	RestID              string `json:"restID"`
	OrderID             string `json:"orderID"`
	Status              string `json:"status"`
	MinimumPrepTime     int    `json:"minimum_prep_time"`
	MinimumDeliveryTime int    `json:"minimum_delivery_time"`
}

type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

type Rider struct {
	Name     string    `json:"name"`
	Phone    string    `json:"phone"`
	Location *Location `json:"location,omitempty"`
}

type Milestone struct {
	Address   string    `json:"address"`
	Location  *Location `json:"location,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

type DeliveryLog struct {
	Status    FulfillmentStatus `json:"status"`
	CreatedAt string            `json:"created_at"`
}

type FulfillmentChannel struct {
	Name    string `json:"name"`
	OrderId string `json:"order_id"`
}

type Fulfillment struct {
	Channel FulfillmentChannel `json:"channel"`
	Logs    []DeliveryLog      `json:"logs"`
	Status  FulfillmentStatus  `json:"status"`
	Pickup  Milestone          `json:"pickup"`
	Drop    Milestone          `json:"drop"`
	Rider   *Rider             `json:"rider,omitempty"`
}

type DeliveryCallback struct {
	Id          string      `json:"id"`
	ReferenceId string      `json:"reference_id"`
	DDChannel   string      `json:"dd_channel"`
	Fulfillment Fulfillment `json:"fulfillment"`
	UpdatedAt   string      `json:"updated_at"`
}
