package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	JWT          JWTConfig
	Broker       BrokerConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Inventory    InventoryConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Broker.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Inventory.validate(); err != nil {
		return nil, err
	}
	if cfg.App.IsProd() && cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("%s is required in %s", EnvJWTSecret, AppEnvProd)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PRODUCTSVC_APP_ENV" required:"true"`
	Port         string `envconfig:"PRODUCTSVC_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PRODUCTSVC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRODUCTSVC_LOG_WARN_STACK" default:"false"`
	LogFile      string `envconfig:"PRODUCTSVC_LOG_FILE"`
	// CORSOrigins is a comma separated allow list for browser clients.
	CORSOrigins []string `envconfig:"PRODUCTSVC_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind        string `envconfig:"PRODUCTSVC_SERVICE_KIND" default:"api"`
	MetricsPort string `envconfig:"PRODUCTSVC_METRICS_PORT" default:"9090"`
}

type DBConfig struct {
	DSN    string `envconfig:"PRODUCTSVC_DB_DSN"`
	Driver string `envconfig:"PRODUCTSVC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRODUCTSVC_DB_HOST"`
	LegacyPort     int    `envconfig:"PRODUCTSVC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRODUCTSVC_DB_USER"`
	LegacyPassword string `envconfig:"PRODUCTSVC_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRODUCTSVC_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRODUCTSVC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRODUCTSVC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRODUCTSVC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRODUCTSVC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRODUCTSVC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQueryThreshold logs statements slower than this at warn.
	SlowQueryThreshold time.Duration `envconfig:"PRODUCTSVC_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRODUCTSVC_REDIS_URL"`
	Address      string        `envconfig:"PRODUCTSVC_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"PRODUCTSVC_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRODUCTSVC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRODUCTSVC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRODUCTSVC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRODUCTSVC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRODUCTSVC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRODUCTSVC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PRODUCTSVC_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PRODUCTSVC_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"PRODUCTSVC_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PRODUCTSVC_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PRODUCTSVC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PRODUCTSVC_GOOGLE_APPLICATION_CREDENTIALS"`
}

// JWTConfig verifies bearer tokens on the HTTP surface. An empty secret
// leaves the API unauthenticated (allowed outside prod only).
type JWTConfig struct {
	Secret            string `envconfig:"PRODUCTSVC_JWT_SECRET"`
	Issuer            string `envconfig:"PRODUCTSVC_JWT_ISSUER" default:"product-service"`
	ExpirationMinutes int    `envconfig:"PRODUCTSVC_JWT_EXPIRATION_MINUTES" default:"60"`
}

func (j JWTConfig) Enabled() bool {
	return j.Secret != ""
}

// BrokerConfig selects the transport and names the routing keys shared by
// every driver.
type BrokerConfig struct {
	Driver                string `envconfig:"PRODUCTSVC_BROKER_DRIVER" default:"pubsub"`
	ProductCreatedTopic   string `envconfig:"PRODUCTSVC_TOPIC_PRODUCT_CREATED" default:"product.created"`
	InventoryUpdatedTopic string `envconfig:"PRODUCTSVC_TOPIC_INVENTORY_UPDATED" default:"inventory.updated"`
	OrderPlacedTopic      string `envconfig:"PRODUCTSVC_TOPIC_ORDER_PLACED" default:"order.placed"`
}

func (b BrokerConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(b.Driver)) {
	case BrokerDriverPubSub, BrokerDriverKafka:
	default:
		return fmt.Errorf("unsupported %s %q", EnvBrokerDriver, b.Driver)
	}
	if b.ProductCreatedTopic == "" || b.InventoryUpdatedTopic == "" || b.OrderPlacedTopic == "" {
		return fmt.Errorf("broker topics must not be empty")
	}
	return nil
}

func (b BrokerConfig) IsKafka() bool {
	return strings.EqualFold(strings.TrimSpace(b.Driver), BrokerDriverKafka)
}

type PubSubConfig struct {
	// TopicPrefix is prepended to routing keys to form GCP topic ids.
	TopicPrefix        string `envconfig:"PRODUCTSVC_PUBSUB_TOPIC_PREFIX"`
	OrdersSubscription string `envconfig:"PRODUCTSVC_PUBSUB_ORDERS_SUBSCRIPTION" default:"order-placed-inventory"`
	MaxOutstanding     int    `envconfig:"PRODUCTSVC_PUBSUB_MAX_OUTSTANDING" default:"10"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"PRODUCTSVC_KAFKA_BROKERS" default:"localhost:9092"`
	GroupID      string        `envconfig:"PRODUCTSVC_KAFKA_GROUP_ID" default:"product-service"`
	BatchTimeout time.Duration `envconfig:"PRODUCTSVC_KAFKA_BATCH_TIMEOUT" default:"10ms"`
	BatchSize    int           `envconfig:"PRODUCTSVC_KAFKA_BATCH_SIZE" default:"1"`
}

type InventoryConfig struct {
	PublishStrategy   string        `envconfig:"PRODUCTSVC_PUBLISH_STRATEGY" default:"publish_then_commit"`
	StoreTimeout      time.Duration `envconfig:"PRODUCTSVC_STORE_TIMEOUT" default:"5s"`
	PublishTimeout    time.Duration `envconfig:"PRODUCTSVC_PUBLISH_TIMEOUT" default:"5s"`
	// OrderBatchTimeout bounds one order.placed batch once it has started.
	OrderBatchTimeout time.Duration `envconfig:"PRODUCTSVC_ORDER_BATCH_TIMEOUT" default:"2m"`
}

func (i InventoryConfig) validate() error {
	switch i.PublishStrategy {
	case PublishStrategyPublishThenCommit, PublishStrategyOutbox:
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvPublishStrategy, i.PublishStrategy)
	}
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PRODUCTSVC_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PRODUCTSVC_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PRODUCTSVC_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Schedule      string        `envconfig:"PRODUCTSVC_CRON_SCHEDULE" default:"@every 1h"`
	LockKey       string        `envconfig:"PRODUCTSVC_CRON_LOCK_KEY" default:"product-service:cron:lock"`
	LockTTL       time.Duration `envconfig:"PRODUCTSVC_CRON_LOCK_TTL" default:"30m"`
	RetentionDays int           `envconfig:"PRODUCTSVC_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DBDriverSQLite
		if db.DSN == "" {
			db.DSN = "file::memory:?cache=shared"
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
