package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/abhishekY2401/product-service/pkg/db/models"
	"github.com/abhishekY2401/product-service/pkg/enums"
	"github.com/abhishekY2401/product-service/pkg/events"
	"github.com/abhishekY2401/product-service/pkg/logger"
)

// DomainEvent is one row to be relayed after the caller's transaction commits.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Data          any
	Version       int
	OccurredAt    time.Time
}

// FromMessage converts a typed broker message into an outbox domain event.
func FromMessage(msg events.Message) DomainEvent {
	return DomainEvent{
		EventType:     msg.EventType(),
		AggregateType: msg.AggregateType(),
		AggregateID:   msg.AggregateID(),
		Data:          msg,
	}
}

func (e DomainEvent) validate() error {
	if !e.EventType.IsValid() {
		return fmt.Errorf("invalid event type %q", e.EventType)
	}
	if !e.AggregateType.IsValid() {
		return fmt.Errorf("invalid aggregate type %q", e.AggregateType)
	}
	if e.AggregateID == "" {
		return errors.New("aggregate id required")
	}
	return nil
}

type inserter interface {
	Insert(tx *gorm.DB, event models.OutboxEvent) error
}

// Service writes outbox rows inside caller owned transactions.
type Service struct {
	repo inserter
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit stores the event in tx. Nothing reaches the broker unless tx commits.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if err := event.validate(); err != nil {
		return err
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	envelope, err := NewEnvelope(event.Data, event.Version, occurred)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}); err != nil {
		return err
	}

	if s.logg != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":     envelope.EventID,
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID,
		}), "outbox event queued")
	}
	return nil
}

// EmitMessage is Emit for a typed broker message.
func (s *Service) EmitMessage(ctx context.Context, tx *gorm.DB, msg events.Message) error {
	if msg == nil {
		return errors.New("message required")
	}
	return s.Emit(ctx, tx, FromMessage(msg))
}
