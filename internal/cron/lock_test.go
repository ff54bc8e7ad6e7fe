package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type memoryStore struct {
	data   map[string]string
	ttls   map[string]time.Duration
	setErr error
	delErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	if m.delErr != nil {
		return false, m.delErr
	}
	if v, ok := m.data[key]; ok && v == expected {
		delete(m.data, key)
		return true, nil
	}
	return false, nil
}

func TestRedisLockExclusive(t *testing.T) {
	t.Setenv("PRODUCTSVC_INSTANCE_ID", "cron-a")
	store := newMemoryStore()
	first, err := NewRedisLock(store, "ps:lock:cron", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "ps:lock:cron", time.Minute)

	ok, err := first.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("first acquire: %v %v", ok, err)
	}
	if store.ttls["ps:lock:cron"] != defaultLockTTL {
		t.Fatalf("expected default ttl, got %s", store.ttls["ps:lock:cron"])
	}
	if !strings.HasPrefix(store.data["ps:lock:cron"], "cron-a/") {
		t.Fatalf("token should carry the instance id, got %q", store.data["ps:lock:cron"])
	}
	if ok, _ := second.Acquire(context.Background()); ok {
		t.Fatal("second acquire should lose")
	}
	if err := second.Release(context.Background()); err != nil {
		t.Fatalf("release without ownership: %v", err)
	}
	if _, held := store.data["ps:lock:cron"]; !held {
		t.Fatal("non-owner release must not delete the key")
	}
	if err := first.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, held := store.data["ps:lock:cron"]; held {
		t.Fatal("owner release should delete the key")
	}
}

func TestRedisLockLeavesForeignLease(t *testing.T) {
	store := newMemoryStore()
	lock, _ := NewRedisLock(store, "k", time.Minute)
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("acquire")
	}
	// lease expired and another replica took it
	store.data["k"] = "cron-b/other"
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.data["k"] != "cron-b/other" {
		t.Fatal("foreign lease was deleted")
	}
}

func TestRedisLockErrors(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", 0); err == nil {
		t.Fatal("expected nil client error")
	}
	if _, err := NewRedisLock(newMemoryStore(), "", 0); err == nil {
		t.Fatal("expected empty key error")
	}
	store := newMemoryStore()
	store.setErr = errors.New("conn refused")
	lock, _ := NewRedisLock(store, "k", 0)
	if _, err := lock.Acquire(context.Background()); err == nil {
		t.Fatal("expected acquire error")
	}

	store = newMemoryStore()
	lock, _ = NewRedisLock(store, "k", 0)
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("acquire")
	}
	store.delErr = errors.New("timeout")
	if err := lock.Release(context.Background()); err == nil {
		t.Fatal("expected release error")
	}
}
