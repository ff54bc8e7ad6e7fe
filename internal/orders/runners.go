package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/abhishekY2401/product-service/pkg/events"
	"github.com/abhishekY2401/product-service/pkg/kafka"
)

// PubSubRunner feeds a Pub/Sub subscription into the consumer.
type PubSubRunner struct {
	subscription *gcppubsub.Subscriber
	consumer     *Consumer
}

func NewPubSubRunner(subscription *gcppubsub.Subscriber, consumer *Consumer) (*PubSubRunner, error) {
	if subscription == nil {
		return nil, errors.New("orders subscription is required")
	}
	if consumer == nil {
		return nil, errors.New("consumer is required")
	}
	return &PubSubRunner{subscription: subscription, consumer: consumer}, nil
}

// Run receives messages until ctx is canceled.
func (r *PubSubRunner) Run(ctx context.Context) error {
	return r.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if r.consumer.Handle(innerCtx, deliveryFromPubSub(msg, r.consumer.topics.OrderPlaced)) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// deliveryFromPubSub falls back to the subscription's topic when the
// producer set no event_type attribute.
func deliveryFromPubSub(msg *gcppubsub.Message, topic string) Delivery {
	eventType := strings.TrimSpace(msg.Attributes[events.AttrEventType])
	if eventType == "" {
		eventType = topic
	}
	return Delivery{
		ID:        msg.ID,
		EventType: eventType,
		EventID:   strings.TrimSpace(msg.Attributes[events.AttrEventID]),
		Data:      msg.Data,
	}
}

type kafkaRunner interface {
	Run(ctx context.Context, handle kafka.Handler) error
}

// KafkaRunner feeds a Kafka consumer group into the consumer.
type KafkaRunner struct {
	source   kafkaRunner
	consumer *Consumer
}

func NewKafkaRunner(source *kafka.Consumer, consumer *Consumer) (*KafkaRunner, error) {
	if source == nil {
		return nil, errors.New("kafka consumer is required")
	}
	if consumer == nil {
		return nil, errors.New("consumer is required")
	}
	return &KafkaRunner{source: source, consumer: consumer}, nil
}

func (r *KafkaRunner) Run(ctx context.Context) error {
	return r.source.Run(ctx, func(ctx context.Context, msg kafkago.Message) bool {
		return r.consumer.Handle(ctx, deliveryFromKafka(msg))
	})
}

// deliveryFromKafka falls back to the topic when the producer set no
// event_type header.
func deliveryFromKafka(msg kafkago.Message) Delivery {
	headers := kafka.HeaderMap(msg.Headers)
	eventType := strings.TrimSpace(headers[events.AttrEventType])
	if eventType == "" {
		eventType = msg.Topic
	}
	return Delivery{
		ID:        fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset),
		EventType: eventType,
		EventID:   strings.TrimSpace(headers[events.AttrEventID]),
		Data:      msg.Value,
	}
}
