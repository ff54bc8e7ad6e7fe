package migrate

import (
	"context"
	"fmt"

	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/db"
	"github.com/abhishekY2401/product-service/pkg/db/models"
	"github.com/abhishekY2401/product-service/pkg/logger"
)

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{&models.Product{}, &models.OutboxEvent{}, &models.OutboxDLQ{}}
}

// MaybeRunDev migrates the schema on startup in dev when the feature flag is
// on. The SQL files target postgres; sqlite databases are built from the
// gorm models instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg.DB.Driver == config.DBDriverSQLite {
		logg.Info(logg.WithField(ctx, "driver", cfg.DB.Driver), "auto-migrating sqlite schema from models")
		if err := client.DB().WithContext(ctx).AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("sqlite automigrate: %w", err)
		}
		return nil
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	runner, err := NewRunner(sqlDB, "")
	if err != nil {
		return err
	}
	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", applied), "goose migrations completed (dev auto-run)")
	return nil
}
