package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/abhishekY2401/product-service/pkg/logger"
)

// Publisher sends raw payloads to Pub/Sub topics named by routing key. One
// underlying publisher is kept per topic.
type Publisher struct {
	client *Client
	logg   *logger.Logger

	mu      sync.Mutex
	handles map[string]*pubsub.Publisher
}

func NewPublisher(client *Client, logg *logger.Logger) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("pubsub client required")
	}
	return &Publisher{
		client:  client,
		logg:    logg,
		handles: make(map[string]*pubsub.Publisher),
	}, nil
}

// Publish blocks until the server acknowledges the message or ctx ends.
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte, attributes map[string]string) error {
	handle, err := p.handle(topic)
	if err != nil {
		return err
	}
	result := handle.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: attributes,
	})
	serverID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("pubsub publish %s: %w", topic, err)
	}
	if p.logg != nil {
		logCtx := p.logg.WithFields(ctx, map[string]any{
			"topic":      topic,
			"message_id": serverID,
		})
		p.logg.Debug(logCtx, "pubsub message published")
	}
	return nil
}

func (p *Publisher) handle(topic string) (*pubsub.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.handles[topic]; ok {
		return h, nil
	}
	h := p.client.Publisher(topic)
	if h == nil {
		return nil, fmt.Errorf("pubsub topic %q not configured", topic)
	}
	p.handles[topic] = h
	return h, nil
}

// Close flushes and stops every topic publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for topic, h := range p.handles {
		h.Stop()
		delete(p.handles, topic)
	}
	return nil
}
