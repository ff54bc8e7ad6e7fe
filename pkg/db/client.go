package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/logger"
)

// Client owns the pooled gorm connection shared by the repositories.
type Client struct {
	conn *gorm.DB
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the configured driver, applies pool limits and routes slow
// query warnings into the service logger.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLogger(ctx, logg, cfg.SlowQueryThreshold),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if dialector.Name() == config.DBDriverSQLite {
		// a shared in-memory database must not be written from two connections
		maxOpen = 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"driver":    dialector.Name(),
			"max_conns": maxOpen,
		}), "database connection established")
	}
	return &Client{conn: conn}, nil
}

func dialectorFor(cfg config.DBConfig) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DBDriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	case "", config.DBDriverPostgres:
		return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// queryWriter adapts gorm's printf logger to the structured logger.
type queryWriter struct {
	ctx  context.Context
	logg *logger.Logger
}

func (w queryWriter) Printf(format string, args ...any) {
	w.logg.Warn(w.logg.WithField(w.ctx, "component", "gorm"), strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func newQueryLogger(ctx context.Context, logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return gormlogger.New(queryWriter{ctx: ctx, logg: logg}, gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
		Colorful:                  false,
	})
}

// NewFromGorm wraps an already opened connection. Tests use it with sqlite.
func NewFromGorm(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in a transaction that commits when fn returns nil. A panic
// rolls back and is re-raised.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}

// Begin opens a scoped transaction handle. Callers must defer Rollback; it is a
// no-op once Commit has been attempted.
func (c *Client) Begin(ctx context.Context) (*Tx, error) {
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Tx{tx: tx}, nil
}

// Tx is an explicit transaction handle that is released exactly once.
type Tx struct {
	tx       *gorm.DB
	released bool
}

func (t *Tx) DB() *gorm.DB {
	return t.tx
}

// Commit commits the transaction. A failed commit still releases the handle.
func (t *Tx) Commit() error {
	if t.released {
		return fmt.Errorf("transaction already released")
	}
	t.released = true
	return t.tx.Commit().Error
}

func (t *Tx) Rollback() error {
	if t.released {
		return nil
	}
	t.released = true
	return t.tx.Rollback().Error
}
