package kafka

import (
	"context"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/logger"
)

const defaultMaxDeliveries = 3

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Handler processes one message. Returning false asks for redelivery.
type Handler func(ctx context.Context, msg kafkago.Message) bool

// Consumer reads a single topic in a consumer group and commits offsets
// only after the handler is done with a message.
type Consumer struct {
	reader        messageReader
	logg          *logger.Logger
	maxDeliveries int
}

// NewReader builds a group reader for topic.
func NewReader(cfg config.KafkaConfig, topic string) (*kafkago.Reader, error) {
	brokers := brokerList(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: cfg.GroupID,
	}), nil
}

func NewConsumer(cfg config.KafkaConfig, topic string, logg *logger.Logger) (*Consumer, error) {
	reader, err := NewReader(cfg, topic)
	if err != nil {
		return nil, err
	}
	return newConsumer(reader, logg), nil
}

func newConsumer(reader messageReader, logg *logger.Logger) *Consumer {
	return &Consumer{reader: reader, logg: logg, maxDeliveries: defaultMaxDeliveries}
}

// Run fetches messages until ctx is canceled. A message the handler keeps
// rejecting is committed after maxDeliveries attempts so the partition moves on.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	if handle == nil {
		return errors.New("kafka handler required")
	}
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka fetch: %w", err)
		}

		acked := false
		for attempt := 1; attempt <= c.maxDeliveries; attempt++ {
			if handle(ctx, msg) {
				acked = true
				break
			}
			if ctx.Err() != nil {
				return nil
			}
		}
		if !acked && c.logg != nil {
			logCtx := c.logg.WithFields(ctx, map[string]any{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			})
			c.logg.Warn(logCtx, "kafka message dropped after repeated failures")
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka commit: %w", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
