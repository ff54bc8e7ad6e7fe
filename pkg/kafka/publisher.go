package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/events"
	"github.com/abhishekY2401/product-service/pkg/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes raw payloads to Kafka topics named by routing key.
type Publisher struct {
	writer messageWriter
	logg   *logger.Logger
}

// NewWriter builds a writer without a fixed topic; each message names its own.
func NewWriter(cfg config.KafkaConfig) (*kafkago.Writer, error) {
	brokers := brokerList(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.LeastBytes{},
		BatchTimeout:           cfg.BatchTimeout,
		BatchSize:              cfg.BatchSize,
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}, nil
}

func NewPublisher(cfg config.KafkaConfig, logg *logger.Logger) (*Publisher, error) {
	writer, err := NewWriter(cfg)
	if err != nil {
		return nil, err
	}
	return newPublisher(writer, logg), nil
}

func newPublisher(writer messageWriter, logg *logger.Logger) *Publisher {
	return &Publisher{writer: writer, logg: logg}
}

// Publish blocks until the brokers acknowledge the write or ctx ends.
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte, attributes map[string]string) error {
	msg := kafkago.Message{
		Topic:   topic,
		Value:   payload,
		Headers: toHeaders(attributes),
	}
	if id := attributes[events.AttrEventID]; id != "" {
		msg.Key = []byte(id)
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", topic, err)
	}
	if p.logg != nil {
		p.logg.Debug(p.logg.WithField(ctx, "topic", topic), "kafka message published")
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func toHeaders(attributes map[string]string) []kafkago.Header {
	if len(attributes) == 0 {
		return nil
	}
	headers := make([]kafkago.Header, 0, len(attributes))
	for k, v := range attributes {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

// HeaderMap flattens message headers into attributes.
func HeaderMap(headers []kafkago.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func brokerList(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, b := range raw {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
