package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/logger"
)

var errProjectIDRequired = errors.New("gcp project id is required")

// Options says which resources the process depends on. They are checked at
// startup and on every Ping.
type Options struct {
	// Consume requires the orders subscription to exist.
	Consume bool
	// Topics are routing keys this process publishes to.
	Topics []string
}

// Client wraps the Pub/Sub v2 client with resource naming for this service.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	opts      Options
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, opts Options, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if opts.Consume && strings.TrimSpace(cfg.OrdersSubscription) == "" {
		return nil, errors.New("pubsub orders subscription is required")
	}

	psClient, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, projectID: projectID, cfg: cfg, opts: opts}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project_id": projectID,
			"consume":    opts.Consume,
			"topics":     opts.Topics,
		}), "pubsub client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

// Ping confirms every resource in Options exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	var errs error
	if c.opts.Consume {
		name := c.subscriptionResourceName(c.cfg.OrdersSubscription)
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
		errs = multierr.Append(errs, describe("subscription", name, err))
	}
	for _, topic := range c.opts.Topics {
		name := c.topicResourceName(topic)
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
		errs = multierr.Append(errs, describe("topic", name, err))
	}
	return errs
}

func describe(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

// Subscription returns a Subscriber for a subscription id or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := c.subscriptionResourceName(name)
	if fullName == "" {
		return nil
	}
	sub := c.client.Subscriber(fullName)
	if c.cfg.MaxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = c.cfg.MaxOutstanding
	}
	return sub
}

// OrdersSubscription returns the subscriber bound to order.placed.
func (c *Client) OrdersSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.OrdersSubscription)
}

// Publisher returns a publisher for a routing key or topic resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := c.topicResourceName(name)
	if fullName == "" {
		return nil
	}
	return c.client.Publisher(fullName)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) subscriptionResourceName(name string) string {
	if c == nil {
		return ""
	}
	return resourceName(c.projectID, "subscriptions", "", name)
}

// topicResourceName applies the configured prefix to bare routing keys.
func (c *Client) topicResourceName(name string) string {
	if c == nil {
		return ""
	}
	return resourceName(c.projectID, "topics", c.cfg.TopicPrefix, name)
}

// resourceName builds projects/<project>/<collection>/<prefix><id>. Names that
// are already full resource paths pass through.
func resourceName(project, collection, prefix, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+collection+"/") {
		return n
	}
	if project = strings.TrimSpace(project); project == "" {
		return ""
	}
	return "projects/" + project + "/" + collection + "/" + prefix + n
}
