package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abhishekY2401/product-service/pkg/enums"
)

type capturePublisher struct {
	topic    string
	payload  []byte
	attrs    map[string]string
	deadline bool
	err      error
}

func (c *capturePublisher) Publish(ctx context.Context, topic string, payload []byte, attrs map[string]string) error {
	c.topic = topic
	c.payload = payload
	c.attrs = attrs
	_, c.deadline = ctx.Deadline()
	return c.err
}

func TestEncodeWireShapes(t *testing.T) {
	topics := DefaultTopics()
	tests := []struct {
		name  string
		msg   Message
		topic string
		body  string
	}{
		{
			name:  "product created",
			msg:   ProductCreated{ID: 3, Name: "Lamp", Price: 19.5, Quantity: 4},
			topic: "product.created",
			body:  `{"id":3,"name":"Lamp","price":19.5,"quantity":4}`,
		},
		{
			name:  "inventory single",
			msg:   InventoryUpdated{ProductID: 1, NewStock: 7},
			topic: "inventory.updated",
			body:  `{"product_id":1,"new_stock":7}`,
		},
		{
			name:  "inventory batch",
			msg:   InventoryBatchUpdated{Items: []InventoryUpdated{{ProductID: 1, NewStock: 9}, {ProductID: 3, NewStock: 0}}},
			topic: "inventory.updated",
			body:  `[{"product_id":1,"new_stock":9},{"product_id":3,"new_stock":0}]`,
		},
		{
			name:  "empty batch",
			msg:   InventoryBatchUpdated{},
			topic: "inventory.updated",
			body:  `[]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic, body, attrs, err := Encode(topics, tt.msg, "evt-1")
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if topic != tt.topic {
				t.Fatalf("expected topic %q got %q", tt.topic, topic)
			}
			if string(body) != tt.body {
				t.Fatalf("expected body %s got %s", tt.body, body)
			}
			if attrs[AttrEventType] != tt.topic || attrs[AttrEventID] != "evt-1" {
				t.Fatalf("unexpected attributes %v", attrs)
			}
			if attrs[AttrEventKind] != string(tt.msg.EventType()) {
				t.Fatalf("unexpected event kind %q", attrs[AttrEventKind])
			}
		})
	}
}

func TestInventoryBatchRoundTrip(t *testing.T) {
	var batch InventoryBatchUpdated
	if err := batch.UnmarshalJSON([]byte(`[{"product_id":5,"new_stock":2}]`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(batch.Items) != 1 || batch.Items[0].ProductID != 5 || batch.Items[0].NewStock != 2 {
		t.Fatalf("unexpected batch %+v", batch)
	}
}

func TestDecodeOrderPlaced(t *testing.T) {
	order, err := DecodeOrderPlaced([]byte(`{"items":[{"product_id":1,"quantity":2},{"product_id":4,"quantity":1}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(order.Items) != 2 || order.Items[1].ProductID != 4 {
		t.Fatalf("unexpected order %+v", order)
	}

	if _, err := DecodeOrderPlaced([]byte(`{"lines":[]}`)); err == nil {
		t.Fatal("expected missing items to fail")
	}
	if _, err := DecodeOrderPlaced([]byte(`not-json`)); err == nil {
		t.Fatal("expected malformed payload to fail")
	}
	empty, err := DecodeOrderPlaced([]byte(`{"items":[]}`))
	if err != nil || len(empty.Items) != 0 {
		t.Fatalf("expected empty order to decode, got %+v %v", empty, err)
	}
}

func TestTopicsForUnknownType(t *testing.T) {
	if _, err := DefaultTopics().For(enums.OutboxEventType("order_created")); err == nil {
		t.Fatal("expected unknown event type to fail")
	}
}

func TestEmitterAppliesTimeout(t *testing.T) {
	pub := &capturePublisher{}
	emitter, err := NewEmitter(pub, DefaultTopics(), time.Second)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	if err := emitter.Emit(context.Background(), InventoryUpdated{ProductID: 1, NewStock: 3}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if !pub.deadline {
		t.Fatal("expected publish context to carry a deadline")
	}
	if pub.topic != "inventory.updated" || pub.attrs[AttrEventID] == "" {
		t.Fatalf("unexpected publish %q %v", pub.topic, pub.attrs)
	}
}

func TestEmitterWrapsPublishError(t *testing.T) {
	boom := errors.New("broker down")
	emitter, err := NewEmitter(&capturePublisher{err: boom}, DefaultTopics(), 0)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	err = emitter.Emit(context.Background(), ProductCreated{ID: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestNewEmitterRequiresPublisher(t *testing.T) {
	if _, err := NewEmitter(nil, DefaultTopics(), time.Second); err == nil {
		t.Fatal("expected missing publisher error")
	}
}
