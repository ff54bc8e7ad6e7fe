package orders

import (
	"context"
	"errors"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/abhishekY2401/product-service/pkg/events"
)

type fakeProcessor struct {
	calls []string
	err   error
}

func (f *fakeProcessor) Process(_ context.Context, ref string, order events.OrderPlaced) (events.InventoryBatchUpdated, error) {
	f.calls = append(f.calls, ref)
	return events.InventoryBatchUpdated{OrderRef: ref}, f.err
}

type fakeIdempotency struct {
	seen     map[string]bool
	checkErr error
	deleted  []string
}

func (f *fakeIdempotency) CheckAndMarkProcessed(_ context.Context, _ string, id string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	already := f.seen[id]
	f.seen[id] = true
	return already, nil
}

func (f *fakeIdempotency) Delete(_ context.Context, _ string, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.seen, id)
	return nil
}

func newTestConsumer(t *testing.T, proc batchProcessor, manager idempotencyChecker) *Consumer {
	t.Helper()
	c, err := NewConsumer(proc, manager, events.DefaultTopics(), testLogger(), nil)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	return c
}

const orderBody = `{"items":[{"product_id":1,"quantity":2}]}`

func TestConsumerProcessesOrderPlaced(t *testing.T) {
	proc := &fakeProcessor{}
	c := newTestConsumer(t, proc, &fakeIdempotency{})

	ack := c.Handle(context.Background(), Delivery{ID: "m-1", EventType: "order.placed", EventID: "evt-1", Data: []byte(orderBody)})
	if !ack {
		t.Fatal("expected ack")
	}
	if len(proc.calls) != 1 || proc.calls[0] != "evt-1" {
		t.Fatalf("expected one call keyed by event id, got %v", proc.calls)
	}
}

func TestConsumerDiscardsUnknownRoutingKey(t *testing.T) {
	proc := &fakeProcessor{}
	c := newTestConsumer(t, proc, &fakeIdempotency{})

	if !c.Handle(context.Background(), Delivery{ID: "m-2", EventType: "order.cancelled", Data: []byte(orderBody)}) {
		t.Fatal("unknown routing keys must be acked")
	}
	if len(proc.calls) != 0 {
		t.Fatal("unknown routing key must not be processed")
	}
}

func TestConsumerSkipsDuplicateDelivery(t *testing.T) {
	proc := &fakeProcessor{}
	c := newTestConsumer(t, proc, &fakeIdempotency{})
	d := Delivery{ID: "m-3", EventType: "order.placed", Data: []byte(orderBody)}

	if !c.Handle(context.Background(), d) || !c.Handle(context.Background(), d) {
		t.Fatal("both deliveries should be acked")
	}
	if len(proc.calls) != 1 || proc.calls[0] != "m-3" {
		t.Fatalf("duplicate must be processed once keyed by message id, got %v", proc.calls)
	}
}

func TestConsumerAcksMalformedPayload(t *testing.T) {
	proc := &fakeProcessor{}
	manager := &fakeIdempotency{}
	c := newTestConsumer(t, proc, manager)

	if !c.Handle(context.Background(), Delivery{ID: "m-4", EventType: "order.placed", Data: []byte(`{"items":`)}) {
		t.Fatal("malformed payloads must be acked")
	}
	if len(proc.calls) != 0 || len(manager.seen) != 0 {
		t.Fatal("malformed payload must not be processed or marked")
	}
}

func TestConsumerNacksWhenIdempotencyUnavailable(t *testing.T) {
	proc := &fakeProcessor{}
	c := newTestConsumer(t, proc, &fakeIdempotency{checkErr: errors.New("redis down")})

	if c.Handle(context.Background(), Delivery{ID: "m-5", EventType: "order.placed", Data: []byte(orderBody)}) {
		t.Fatal("expected nack")
	}
	if len(proc.calls) != 0 {
		t.Fatal("must not process without an idempotency decision")
	}
}

func TestConsumerAcksWhenAnnouncementFails(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("broker down")}
	manager := &fakeIdempotency{}
	c := newTestConsumer(t, proc, manager)

	if !c.Handle(context.Background(), Delivery{ID: "m-6", EventType: "order.placed", Data: []byte(orderBody)}) {
		t.Fatal("applied orders must be acked")
	}
	if !manager.seen["m-6"] {
		t.Fatal("processed mark must be kept so stock is not decremented twice")
	}
}

func TestConsumerReleasesMarkWhenCanceledBeforeProcessing(t *testing.T) {
	proc := &fakeProcessor{}
	manager := &fakeIdempotency{}
	c := newTestConsumer(t, proc, manager)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if c.Handle(ctx, Delivery{ID: "m-7", EventType: "order.placed", Data: []byte(orderBody)}) {
		t.Fatal("expected nack on shutdown")
	}
	if len(manager.deleted) != 1 || manager.seen["m-7"] {
		t.Fatalf("mark should be released, deleted=%v", manager.deleted)
	}
}

func TestConsumerWithoutManager(t *testing.T) {
	proc := &fakeProcessor{}
	c := newTestConsumer(t, proc, nil)

	if !c.Handle(context.Background(), Delivery{ID: "m-8", EventType: "order.placed", Data: []byte(orderBody)}) {
		t.Fatal("expected ack")
	}
	if len(proc.calls) != 1 {
		t.Fatalf("expected processing, got %v", proc.calls)
	}
}

func TestDeliveryFromKafka(t *testing.T) {
	d := deliveryFromKafka(kafkago.Message{
		Topic:     "order.placed",
		Partition: 2,
		Offset:    41,
		Value:     []byte(orderBody),
		Headers:   []kafkago.Header{{Key: events.AttrEventID, Value: []byte("evt-9")}},
	})
	if d.EventType != "order.placed" {
		t.Fatalf("expected topic fallback, got %q", d.EventType)
	}
	if d.ID != "order.placed/2/41" || d.EventID != "evt-9" || d.dedupeKey() != "evt-9" {
		t.Fatalf("unexpected delivery %+v", d)
	}

	d = deliveryFromKafka(kafkago.Message{
		Topic:   "orders",
		Headers: []kafkago.Header{{Key: events.AttrEventType, Value: []byte("order.placed")}},
	})
	if d.EventType != "order.placed" || d.dedupeKey() != "orders/0/0" {
		t.Fatalf("unexpected delivery %+v", d)
	}
}

func TestDeliveryFromPubSubWithoutAttributes(t *testing.T) {
	proc := &fakeProcessor{}
	c := newTestConsumer(t, proc, &fakeIdempotency{})

	d := deliveryFromPubSub(&gcppubsub.Message{ID: "ps-1", Data: []byte(orderBody)}, c.topics.OrderPlaced)
	if d.EventType != "order.placed" || d.dedupeKey() != "ps-1" {
		t.Fatalf("unexpected delivery %+v", d)
	}
	if !c.Handle(context.Background(), d) || len(proc.calls) != 1 {
		t.Fatalf("order without attributes should be processed, got %v", proc.calls)
	}

	d = deliveryFromPubSub(&gcppubsub.Message{
		ID:         "ps-2",
		Attributes: map[string]string{events.AttrEventType: "order.cancelled", events.AttrEventID: " evt-3 "},
	}, c.topics.OrderPlaced)
	if d.EventType != "order.cancelled" || d.EventID != "evt-3" {
		t.Fatalf("attributes should win over the fallback, got %+v", d)
	}
}

func TestNewConsumerValidation(t *testing.T) {
	if _, err := NewConsumer(nil, nil, events.DefaultTopics(), testLogger(), nil); err == nil {
		t.Fatal("expected missing processor error")
	}
	if _, err := NewConsumer(&fakeProcessor{}, nil, events.Topics{}, testLogger(), nil); err == nil {
		t.Fatal("expected missing topic error")
	}
}
