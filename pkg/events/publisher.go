package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message attributes carried on every broker message.
const (
	AttrEventType = "event_type"
	AttrEventKind = "event_kind"
	AttrEventID   = "event_id"
	AttrVersion   = "version"
)

const defaultPublishTimeout = 5 * time.Second

// Publisher is the broker primitive: publish(topic, payload).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, attributes map[string]string) error
}

// Emitter encodes typed messages and publishes them with a bounded timeout.
type Emitter struct {
	publisher Publisher
	topics    Topics
	timeout   time.Duration
	newID     func() string
}

func NewEmitter(publisher Publisher, topics Topics, timeout time.Duration) (*Emitter, error) {
	if publisher == nil {
		return nil, errors.New("publisher required")
	}
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &Emitter{
		publisher: publisher,
		topics:    topics,
		timeout:   timeout,
		newID:     uuid.NewString,
	}, nil
}

// Encode renders a message body and its broker attributes.
func Encode(topics Topics, msg Message, eventID string) (topic string, body []byte, attrs map[string]string, err error) {
	if msg == nil {
		return "", nil, nil, errors.New("message required")
	}
	topic, err = topics.For(msg.EventType())
	if err != nil {
		return "", nil, nil, err
	}
	body, err = json.Marshal(msg)
	if err != nil {
		return "", nil, nil, fmt.Errorf("encode %s: %w", msg.EventType(), err)
	}
	attrs = map[string]string{
		AttrEventType: topic,
		AttrEventKind: string(msg.EventType()),
		AttrEventID:   eventID,
		AttrVersion:   "1",
	}
	return topic, body, attrs, nil
}

// Emit publishes msg and returns once the broker acknowledged it or the
// timeout elapsed.
func (e *Emitter) Emit(ctx context.Context, msg Message) error {
	topic, body, attrs, err := Encode(e.topics, msg, e.newID())
	if err != nil {
		return err
	}
	pubCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.publisher.Publish(pubCtx, topic, body, attrs); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Topics exposes the routing keys the emitter publishes to.
func (e *Emitter) Topics() Topics {
	return e.topics
}
