package config

const EnvPrefix = "PRODUCTSVC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	BrokerDriverPubSub = "pubsub"
	BrokerDriverKafka  = "kafka"
)

// Publish strategies for stock adjustments.
const (
	PublishStrategyPublishThenCommit = "publish_then_commit"
	PublishStrategyOutbox            = "outbox"
)

const (
	EnvAppEnv          = "PRODUCTSVC_APP_ENV"
	EnvPort            = "PRODUCTSVC_APP_PORT"
	EnvLogLevel        = "PRODUCTSVC_LOG_LEVEL"
	EnvUseSQLite       = "PRODUCTSVC_USE_SQLITE"
	EnvDBDSN           = "PRODUCTSVC_DB_DSN"
	EnvDBHost          = "PRODUCTSVC_DB_HOST"
	EnvDBPort          = "PRODUCTSVC_DB_PORT"
	EnvDBUser          = "PRODUCTSVC_DB_USER"
	EnvDBPassword      = "PRODUCTSVC_DB_PASSWORD"
	EnvDBName          = "PRODUCTSVC_DB_NAME"
	EnvRedisURL        = "PRODUCTSVC_REDIS_URL"
	EnvGCPProjectID    = "PRODUCTSVC_GCP_PROJECT_ID"
	EnvBrokerDriver    = "PRODUCTSVC_BROKER_DRIVER"
	EnvKafkaBrokers    = "PRODUCTSVC_KAFKA_BROKERS"
	EnvPublishStrategy = "PRODUCTSVC_PUBLISH_STRATEGY"
	EnvPublishTimeout  = "PRODUCTSVC_PUBLISH_TIMEOUT"
	EnvStoreTimeout    = "PRODUCTSVC_STORE_TIMEOUT"
	EnvCronSchedule    = "PRODUCTSVC_CRON_SCHEDULE"
	EnvJWTSecret       = "PRODUCTSVC_JWT_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
