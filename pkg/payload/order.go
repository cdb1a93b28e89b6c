package payload

import (
	"math"
	"math/rand"

	"food-order-loadtest/pkg/models"
)

const (
	OrderTypeDelivery = "DELIVERY"
	OrderTypePickup   = "PICKUP"

	PaymentTypeOnline = "ONLINE"

	DeliveryCharge  = 53.10
	PackagingCharge = 20.00

	// DefaultAddressId is used when neither an existing nor a freshly created
	// address could be resolved for the customer.
	DefaultAddressId = "1"
)

// SampleItems stand in for the menu when no snapshot could be fetched.
var SampleItems = []models.MenuItem{
	{
		Id:    "101",
		Name:  "Paneer Butter Masala",
		Price: 240,
		Taxes: []models.Tax{{Id: "1", Name: "CGST", Rate: 2.5}, {Id: "2", Name: "SGST", Rate: 2.5}},
	},
	{
		Id:    "102",
		Name:  "Veg Biryani",
		Price: 180,
		Taxes: []models.Tax{{Id: "1", Name: "CGST", Rate: 2.5}, {Id: "2", Name: "SGST", Rate: 2.5}},
	},
	{
		Id:    "103",
		Name:  "Garlic Naan",
		Price: 60,
		Taxes: []models.Tax{{Id: "1", Name: "CGST", Rate: 2.5}, {Id: "2", Name: "SGST", Rate: 2.5}},
	},
	{
		Id:    "104",
		Name:  "Masala Chai",
		Price: 40,
		Taxes: []models.Tax{{Id: "1", Name: "CGST", Rate: 2.5}, {Id: "2", Name: "SGST", Rate: 2.5}},
	},
}

type DraftOptions struct {
	OrderType   string
	PaymentType string
	AddressId   string
	// ItemCount forces the number of distinct items; zero picks 1 or 2.
	ItemCount int
	// MaxQuantity above 1 draws a random quantity per item in [1, MaxQuantity].
	MaxQuantity int
	Rand        *rand.Rand
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// percentOf is rate percent of amount, rounded half up to whole paise.
// Integer paise keep 1.8195 from landing on 181.9499... before rounding.
func percentOf(amount, rate float64) float64 {
	paise := int64(math.Round(amount * 100))
	basisPoints := int64(math.Round(rate * 100))
	return float64((paise*basisPoints+5000)/10000) / 100
}

// BuildOrderDraft picks items from the menu (or the samples) and prices them.
// Every reported amount is rounded to 2 decimals, and every total is the
// rounded sum of the reported amounts below it, so the draft adds up exactly.
func BuildOrderDraft(restaurantId, customerId string, menu *models.MenuSnapshot, opts DraftOptions) models.OrderDraft {
	r := opts.Rand
	if r == nil {
		r = rand.New(rand.NewSource(rand.Int63()))
	}

	catalog := SampleItems
	if !menu.Empty() {
		catalog = menu.Items
	}

	count := opts.ItemCount
	if count <= 0 {
		count = 1 + r.Intn(2)
	}
	if count > len(catalog) {
		count = len(catalog)
	}

	orderType := opts.OrderType
	if orderType == "" {
		orderType = OrderTypeDelivery
	}
	paymentType := opts.PaymentType
	if paymentType == "" {
		paymentType = PaymentTypeOnline
	}
	addressId := opts.AddressId
	if addressId == "" {
		addressId = DefaultAddressId
	}

	picked := r.Perm(len(catalog))[:count]

	var subTotal, taxTotal float64
	taxOrder := []string{}
	taxLines := map[string]*models.OrderTax{}
	items := make([]models.OrderItem, 0, count)

	for _, idx := range picked {
		menuItem := catalog[idx]
		qty := 1
		if opts.MaxQuantity > 1 {
			qty = 1 + r.Intn(opts.MaxQuantity)
		}

		linePrice := round2(menuItem.Price * float64(qty))
		var lineTax float64
		itemTaxes := make([]models.OrderItemTax, 0, len(menuItem.Taxes))
		for _, tax := range menuItem.Taxes {
			amount := percentOf(linePrice, tax.Rate)
			lineTax += amount
			itemTaxes = append(itemTaxes, models.OrderItemTax{
				TaxId:  tax.Id,
				Name:   tax.Name,
				Rate:   tax.Rate,
				Amount: amount,
			})

			line, ok := taxLines[tax.Id]
			if !ok {
				line = &models.OrderTax{TaxId: tax.Id, Name: tax.Name, Rate: tax.Rate}
				taxLines[tax.Id] = line
				taxOrder = append(taxOrder, tax.Id)
			}
			line.Amount += amount
		}
		lineTax = round2(lineTax)

		subTotal += linePrice
		taxTotal += lineTax
		items = append(items, models.OrderItem{
			MenuItemId: menuItem.Id,
			Name:       menuItem.Name,
			Quantity:   qty,
			Price:      menuItem.Price,
			FinalPrice: linePrice,
			TaxAmount:  lineTax,
			Taxes:      itemTaxes,
		})
	}
	subTotal = round2(subTotal)
	taxTotal = round2(taxTotal)

	orderTax := make([]models.OrderTax, 0, len(taxOrder))
	for _, id := range taxOrder {
		line := *taxLines[id]
		line.Amount = round2(line.Amount)
		orderTax = append(orderTax, line)
	}

	deliveryCharge := DeliveryCharge
	if orderType == OrderTypePickup {
		deliveryCharge = 0
	}

	grandTotal := round2(subTotal + taxTotal + deliveryCharge + PackagingCharge)

	return models.OrderDraft{
		RestaurantId: restaurantId,
		CustomerId:   customerId,
		OrderType:    orderType,
		PaymentType:  paymentType,
		OrderItems:   items,
		OrderTax:     orderTax,
		DeliveryDetails: models.DeliveryDetails{
			AddressId:      addressId,
			DeliveryCharge: deliveryCharge,
		},
		SubTotal:         subTotal,
		TaxAmount:        taxTotal,
		DeliveryCharge:   deliveryCharge,
		PackagingCharge:  PackagingCharge,
		TotalAmount:      grandTotal,
		GrandTotalAmount: grandTotal,
	}
}
