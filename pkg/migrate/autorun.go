package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/buildmart-backend/pkg/config"
	"github.com/angelmondragon/buildmart-backend/pkg/db"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations at boot, but only in dev
// with the auto-migrate flag on.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || client == nil {
		return fmt.Errorf("config and db client are required")
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("unwrap sql.DB: %w", err)
	}
	migrations, err := Source("")
	if err != nil {
		return err
	}
	runner, err := NewRunner(sqlDB, migrations, logg)
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "trigger", "dev_auto_migrate")
	return runner.Up(ctx)
}
