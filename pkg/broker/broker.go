// Package broker opens the message transport selected by configuration.
package broker

import (
	"context"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/multierr"

	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/kafka"
	"github.com/abhishekY2401/product-service/pkg/logger"
	"github.com/abhishekY2401/product-service/pkg/pubsub"
)

// Conn is a publisher for the configured driver plus what it needs to be
// health checked and shut down.
type Conn struct {
	publisher interface {
		Publish(ctx context.Context, topic string, payload []byte, attributes map[string]string) error
	}
	driver  string
	ping    func(context.Context) error
	closers []func() error
	pubsub  *pubsub.Client
}

// Open connects to Pub/Sub or Kafka. consume marks processes that read
// order.placed; on Pub/Sub their subscription must exist.
func Open(ctx context.Context, cfg *config.Config, consume bool, logg *logger.Logger) (*Conn, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if cfg.Broker.IsKafka() {
		pub, err := kafka.NewPublisher(cfg.Kafka, logg)
		if err != nil {
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		brokers := cfg.Kafka.Brokers
		return &Conn{
			publisher: pub,
			driver:    config.BrokerDriverKafka,
			ping:      func(ctx context.Context) error { return dialAny(ctx, brokers) },
			closers:   []func() error{pub.Close},
		}, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.Options{
		Consume: consume,
		Topics:  []string{cfg.Broker.ProductCreatedTopic, cfg.Broker.InventoryUpdatedTopic},
	}, logg)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	pub, err := pubsub.NewPublisher(client, logg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Conn{
		publisher: pub,
		driver:    config.BrokerDriverPubSub,
		ping:      client.Ping,
		closers:   []func() error{pub.Close, client.Close},
		pubsub:    client,
	}, nil
}

func (c *Conn) Publish(ctx context.Context, topic string, payload []byte, attributes map[string]string) error {
	return c.publisher.Publish(ctx, topic, payload, attributes)
}

// Driver reports which transport is in use.
func (c *Conn) Driver() string { return c.driver }

// PubSub returns the underlying client, or nil on Kafka.
func (c *Conn) PubSub() *pubsub.Client { return c.pubsub }

func (c *Conn) Ping(ctx context.Context) error {
	if c.ping == nil {
		return nil
	}
	return c.ping(ctx)
}

// Close flushes pending publishes before closing the client.
func (c *Conn) Close() error {
	var errs error
	for _, closeFn := range c.closers {
		errs = multierr.Append(errs, closeFn())
	}
	return errs
}

// dialAny succeeds if at least one seed broker accepts a connection.
func dialAny(ctx context.Context, brokers []string) error {
	var errs error
	for _, addr := range brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", addr)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		return conn.Close()
	}
	if errs == nil {
		return errors.New("no kafka brokers configured")
	}
	return errs
}
