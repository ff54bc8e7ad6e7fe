package events

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/abhishekY2401/product-service/pkg/enums"
)

// Message is the closed set of outbound event variants.
type Message interface {
	EventType() enums.OutboxEventType
	AggregateType() enums.OutboxAggregateType
	AggregateID() string
	isMessage()
}

// ProductCreated is published on product.created after a product is committed.
type ProductCreated struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

func (ProductCreated) EventType() enums.OutboxEventType         { return enums.EventProductCreated }
func (ProductCreated) AggregateType() enums.OutboxAggregateType { return enums.AggregateProduct }
func (e ProductCreated) AggregateID() string                    { return strconv.FormatInt(e.ID, 10) }
func (ProductCreated) isMessage()                               {}

// InventoryUpdated reports the stock of one product after a direct adjustment.
type InventoryUpdated struct {
	ProductID int64 `json:"product_id"`
	NewStock  int   `json:"new_stock"`
}

func (InventoryUpdated) EventType() enums.OutboxEventType         { return enums.EventInventoryUpdated }
func (InventoryUpdated) AggregateType() enums.OutboxAggregateType { return enums.AggregateProduct }
func (e InventoryUpdated) AggregateID() string                    { return strconv.FormatInt(e.ProductID, 10) }
func (InventoryUpdated) isMessage()                               {}

// InventoryBatchUpdated aggregates the stock changes applied for one order.
// On the wire it is a bare JSON array of InventoryUpdated entries.
type InventoryBatchUpdated struct {
	OrderRef string
	Items    []InventoryUpdated
}

func (InventoryBatchUpdated) EventType() enums.OutboxEventType {
	return enums.EventInventoryBatchUpdated
}
func (InventoryBatchUpdated) AggregateType() enums.OutboxAggregateType { return enums.AggregateOrder }
func (e InventoryBatchUpdated) AggregateID() string                    { return e.OrderRef }
func (InventoryBatchUpdated) isMessage()                               {}

func (e InventoryBatchUpdated) MarshalJSON() ([]byte, error) {
	items := e.Items
	if items == nil {
		items = []InventoryUpdated{}
	}
	return json.Marshal(items)
}

func (e *InventoryBatchUpdated) UnmarshalJSON(data []byte) error {
	var items []InventoryUpdated
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decode inventory batch: %w", err)
	}
	e.Items = items
	return nil
}

// OrderPlaced is the inbound order.placed payload.
type OrderPlaced struct {
	Items []OrderLineItem `json:"items"`
}

type OrderLineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// DecodeOrderPlaced parses an order.placed body. A body without an items key
// is rejected; an empty list is accepted.
func DecodeOrderPlaced(data []byte) (OrderPlaced, error) {
	var raw struct {
		Items *[]OrderLineItem `json:"items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return OrderPlaced{}, fmt.Errorf("decode order.placed: %w", err)
	}
	if raw.Items == nil {
		return OrderPlaced{}, fmt.Errorf("decode order.placed: items missing")
	}
	return OrderPlaced{Items: *raw.Items}, nil
}
