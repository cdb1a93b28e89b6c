package decode

import (
	"encoding/json"
	"strconv"

	svcerror "food-order-loadtest/pkg/error"
	"food-order-loadtest/pkg/models"
)

func CustomerId(body []byte) (string, error) {
	return FirstField(body, "id")
}

func OrderId(body []byte) (string, error) {
	return FirstField(body, "id")
}

func PaymentOrderId(body []byte) (string, error) {
	return FirstField(body, "paymentOrderId")
}

func MenuSharingCode(body []byte) (string, error) {
	return FirstField(body, "menuSharingCode")
}

func AddressId(body []byte) (string, error) {
	return FirstField(body, "id")
}

func OrderStatus(body []byte) (models.OrderStatus, error) {
	status, err := FirstField(body, "status")
	return models.OrderStatus(status), err
}

type DeliveryIds struct {
	DeliveryOrderId string
	ChannelOrderId  string
}

// DeliveryRecord reads the delivery record id and the partner channel's order id.
func DeliveryRecord(body []byte) (DeliveryIds, error) {
	const op = "Decode.DeliveryRecord"
	env, err := Decode(body)
	if err != nil {
		return DeliveryIds{}, svcerror.AddOp(err, op)
	}
	record, ok := env.First()
	if !ok {
		return DeliveryIds{}, decodeErr(op, "response carries no delivery record", nil)
	}

	var rec struct {
		Id          json.RawMessage `json:"id"`
		Fulfillment struct {
			Channel struct {
				OrderId json.RawMessage `json:"order_id"`
			} `json:"channel"`
		} `json:"fulfillment"`
	}
	if err := json.Unmarshal(record, &rec); err != nil {
		return DeliveryIds{}, decodeErr(op, "malformed delivery record", err)
	}

	id, ok := identifier(rec.Id)
	if !ok {
		return DeliveryIds{}, decodeErr(op, "delivery record id missing", nil)
	}
	channelId, ok := identifier(rec.Fulfillment.Channel.OrderId)
	if !ok {
		return DeliveryIds{}, decodeErr(op, "fulfillment.channel.order_id missing", nil)
	}
	return DeliveryIds{DeliveryOrderId: id, ChannelOrderId: channelId}, nil
}

type menuTax struct {
	Id   json.RawMessage `json:"id"`
	Name string          `json:"name"`
	Rate json.Number     `json:"rate"`
}

type menuItem struct {
	Id    json.RawMessage `json:"id"`
	Name  string          `json:"name"`
	Price json.Number     `json:"price"`
	Taxes []menuTax       `json:"taxes"`
}

type menuCategory struct {
	Id    json.RawMessage `json:"id"`
	Name  string          `json:"name"`
	Items []menuItem      `json:"items"`
}

func number(n json.Number) float64 {
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0
	}
	return f
}

// MenuSnapshot flattens categories->items->taxes into a snapshot. Items without
// an id or a positive price are skipped since they cannot be ordered.
func MenuSnapshot(body []byte) (*models.MenuSnapshot, error) {
	const op = "Decode.MenuSnapshot"
	env, err := Decode(body)
	if err != nil {
		return nil, svcerror.AddOp(err, op)
	}
	if env.Shape == ShapeEmpty {
		return nil, decodeErr(op, "menu has no categories", nil)
	}

	snapshot := &models.MenuSnapshot{}
	taxSeen := map[string]bool{}

	for _, raw := range env.Records {
		var cat menuCategory
		if err := json.Unmarshal(raw, &cat); err != nil {
			return nil, decodeErr(op, "malformed category", err)
		}
		catId, _ := identifier(cat.Id)
		category := models.MenuCategory{Id: catId, Name: cat.Name}

		for _, it := range cat.Items {
			id, ok := identifier(it.Id)
			price := number(it.Price)
			if !ok || price <= 0 {
				continue
			}
			item := models.MenuItem{Id: id, Name: it.Name, Price: price}
			for _, tx := range it.Taxes {
				taxId, _ := identifier(tx.Id)
				tax := models.Tax{Id: taxId, Name: tx.Name, Rate: number(tx.Rate)}
				item.Taxes = append(item.Taxes, tax)
				if !taxSeen[taxId] {
					taxSeen[taxId] = true
					snapshot.TaxSummary = append(snapshot.TaxSummary, tax)
				}
			}
			category.Items = append(category.Items, item)
			snapshot.Items = append(snapshot.Items, item)
		}
		snapshot.Categories = append(snapshot.Categories, category)
	}

	if len(snapshot.Items) == 0 {
		return nil, decodeErr(op, "menu has no orderable items", nil)
	}
	return snapshot, nil
}
