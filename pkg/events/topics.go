package events

import (
	"fmt"

	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/enums"
)

// Topics holds the routing keys used on the broker.
type Topics struct {
	ProductCreated   string
	InventoryUpdated string
	OrderPlaced      string
}

func TopicsFromConfig(cfg config.BrokerConfig) Topics {
	return Topics{
		ProductCreated:   cfg.ProductCreatedTopic,
		InventoryUpdated: cfg.InventoryUpdatedTopic,
		OrderPlaced:      cfg.OrderPlacedTopic,
	}
}

// DefaultTopics returns the routing keys used when nothing is configured.
func DefaultTopics() Topics {
	return Topics{
		ProductCreated:   "product.created",
		InventoryUpdated: "inventory.updated",
		OrderPlaced:      "order.placed",
	}
}

// For returns the outbound topic of an event type.
func (t Topics) For(eventType enums.OutboxEventType) (string, error) {
	switch eventType {
	case enums.EventProductCreated:
		return t.ProductCreated, nil
	case enums.EventInventoryUpdated, enums.EventInventoryBatchUpdated:
		return t.InventoryUpdated, nil
	default:
		return "", fmt.Errorf("no topic for event type %s", eventType)
	}
}
