package pubsub

import (
	"context"
	"testing"

	"github.com/abhishekY2401/product-service/pkg/config"
)

func TestTopicResourceNameAppliesPrefix(t *testing.T) {
	c := &Client{projectID: "proj", cfg: config.PubSubConfig{TopicPrefix: "dev-"}}

	if got := c.topicResourceName("inventory.updated"); got != "projects/proj/topics/dev-inventory.updated" {
		t.Fatalf("unexpected topic name %q", got)
	}
	full := "projects/other/topics/product.created"
	if got := c.topicResourceName(full); got != full {
		t.Fatalf("full resource names should pass through, got %q", got)
	}
	if got := c.topicResourceName("  "); got != "" {
		t.Fatalf("expected empty name, got %q", got)
	}
}

func TestSubscriptionResourceName(t *testing.T) {
	c := &Client{projectID: "proj"}

	if got := c.subscriptionResourceName("order-placed-inventory"); got != "projects/proj/subscriptions/order-placed-inventory" {
		t.Fatalf("unexpected subscription name %q", got)
	}
	full := "projects/proj/subscriptions/custom"
	if got := c.subscriptionResourceName(full); got != full {
		t.Fatalf("full resource names should pass through, got %q", got)
	}

	var nilClient *Client
	if got := nilClient.subscriptionResourceName("x"); got != "" {
		t.Fatalf("nil client should yield empty name, got %q", got)
	}
}

func TestResourceName(t *testing.T) {
	cases := []struct {
		project, collection, prefix, name, want string
	}{
		{"proj", "topics", "", "product.created", "projects/proj/topics/product.created"},
		{"proj", "topics", "stg-", " product.created ", "projects/proj/topics/stg-product.created"},
		{"", "topics", "", "product.created", ""},
		{"proj", "subscriptions", "", "projects/x/topics/t", "projects/proj/subscriptions/projects/x/topics/t"},
	}
	for _, tc := range cases {
		if got := resourceName(tc.project, tc.collection, tc.prefix, tc.name); got != tc.want {
			t.Fatalf("resourceName(%q, %q, %q, %q) = %q, want %q", tc.project, tc.collection, tc.prefix, tc.name, got, tc.want)
		}
	}
}

func TestNewClientValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{}, Options{}, nil); err == nil {
		t.Fatal("expected project id error")
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "proj"}, config.PubSubConfig{}, Options{Consume: true}, nil); err == nil {
		t.Fatal("expected missing subscription error")
	}
}

func TestPingUninitialized(t *testing.T) {
	var c *Client
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestClientOptions(t *testing.T) {
	if opts := clientOptions(config.GCPConfig{}); len(opts) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(opts))
	}
	if opts := clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`}); len(opts) != 1 {
		t.Fatalf("expected one option, got %d", len(opts))
	}
	if opts := clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/creds.json"}); len(opts) != 1 {
		t.Fatalf("expected one option, got %d", len(opts))
	}
}

func TestNewPublisherRequiresClient(t *testing.T) {
	if _, err := NewPublisher(nil, nil); err == nil {
		t.Fatalf("expected error")
	}
}
