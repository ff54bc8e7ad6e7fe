// Package idempotency records which broker messages a consumer has already
// handled so redeliveries are acknowledged without being applied twice.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abhishekY2401/product-service/pkg/instance"
)

const defaultTTL = 30 * 24 * time.Hour

// Store is the slice of the redis client the manager needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager marks message ids per consumer. The stored value names the
// instance that claimed the message and when.
type Manager struct {
	store Store
	ttl   time.Duration
	owner string
	now   func() time.Time
}

// NewManager builds a guard whose marks expire after ttl. Zero uses 30 days.
func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if ttl == 0 {
		ttl = defaultTTL
	}
	return &Manager{store: store, ttl: ttl, owner: instance.GetID(), now: time.Now}, nil
}

// CheckAndMarkProcessed reports whether messageID was already claimed by
// consumer, claiming it when it was not.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer, messageID string) (bool, error) {
	key, err := m.key(consumer, messageID)
	if err != nil {
		return false, err
	}
	claimed, err := m.store.SetNX(ctx, key, m.mark(), m.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return !claimed, nil
}

// Delete releases a claim so a redelivery is handled again.
func (m *Manager) Delete(ctx context.Context, consumer, messageID string) error {
	key, err := m.key(consumer, messageID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// ProcessedBy returns the claim stored for messageID, if any.
func (m *Manager) ProcessedBy(ctx context.Context, consumer, messageID string) (string, bool, error) {
	key, err := m.key(consumer, messageID)
	if err != nil {
		return "", false, err
	}
	v, err := m.store.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (m *Manager) mark() string {
	return m.owner + "@" + m.now().UTC().Format(time.RFC3339)
}

func (m *Manager) key(consumer, messageID string) (string, error) {
	consumer = strings.TrimSpace(consumer)
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if strings.Contains(consumer, ":") {
		return "", fmt.Errorf("consumer name %q must not contain ':'", consumer)
	}
	id := strings.TrimSpace(messageID)
	if id == "" {
		return "", errors.New("message id is required")
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, id), nil
}
