package registry

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhishekY2401/product-service/pkg/db/models"
	"github.com/abhishekY2401/product-service/pkg/enums"
	"github.com/abhishekY2401/product-service/pkg/events"
	"github.com/abhishekY2401/product-service/pkg/outbox"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() events.Message
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    events.Message
}

// Attributes returns the broker attributes for the resolved event.
func (r ResolvedEvent) Attributes() map[string]string {
	return map[string]string{
		events.AttrEventType: r.Descriptor.Topic,
		events.AttrEventKind: string(r.Descriptor.EventType),
		events.AttrEventID:   r.Envelope.EventID,
		events.AttrVersion:   fmt.Sprintf("%d", r.Envelope.Version),
	}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured routing keys.
func NewEventRegistry(topics events.Topics) (*EventRegistry, error) {
	if strings.TrimSpace(topics.ProductCreated) == "" {
		return nil, fmt.Errorf("product created topic is required")
	}
	if strings.TrimSpace(topics.InventoryUpdated) == "" {
		return nil, fmt.Errorf("inventory updated topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventProductCreated,
			AggregateType:  enums.AggregateProduct,
			Topic:          topics.ProductCreated,
			PayloadFactory: func() events.Message { return &events.ProductCreated{} },
		},
		{
			EventType:      enums.EventInventoryUpdated,
			AggregateType:  enums.AggregateProduct,
			Topic:          topics.InventoryUpdated,
			PayloadFactory: func() events.Message { return &events.InventoryUpdated{} },
		},
		{
			EventType:      enums.EventInventoryBatchUpdated,
			AggregateType:  enums.AggregateOrder,
			Topic:          topics.InventoryUpdated,
			PayloadFactory: func() events.Message { return &events.InventoryBatchUpdated{} },
		},
	} {
		reg.register(desc)
	}
	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if strings.TrimSpace(event.AggregateID) == "" {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload, event.ID.String())
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
