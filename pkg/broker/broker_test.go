package broker

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "broker-test", Output: io.Discard})
}

func TestOpenKafkaDoesNotDial(t *testing.T) {
	cfg := &config.Config{
		Broker: config.BrokerConfig{Driver: config.BrokerDriverKafka},
		Kafka:  config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}, BatchSize: 1},
	}
	conn, err := Open(context.Background(), cfg, false, testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if conn.Driver() != config.BrokerDriverKafka {
		t.Fatalf("unexpected driver %q", conn.Driver())
	}
	if conn.PubSub() != nil {
		t.Fatal("kafka connection should not expose a pubsub client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err == nil {
		t.Fatal("expected ping to fail against a closed port")
	}
}

func TestOpenKafkaRequiresBrokers(t *testing.T) {
	cfg := &config.Config{Broker: config.BrokerConfig{Driver: config.BrokerDriverKafka}}
	if _, err := Open(context.Background(), cfg, false, testLogger()); err == nil {
		t.Fatal("expected error without brokers")
	}
}

func TestOpenPubSubRequiresProject(t *testing.T) {
	cfg := &config.Config{Broker: config.BrokerConfig{Driver: config.BrokerDriverPubSub}}
	if _, err := Open(context.Background(), cfg, false, testLogger()); err == nil {
		t.Fatal("expected error without gcp project")
	}
}

func TestDialAnyWithoutBrokers(t *testing.T) {
	if err := dialAny(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
}
