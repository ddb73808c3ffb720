package microservices

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Temutjin2k/ride-hail-client/config"
	"github.com/Temutjin2k/ride-hail-client/migrations"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	"github.com/Temutjin2k/ride-hail-client/pkg/postgres"
)

// openDatabase connects to postgres and applies migrations when configured.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*postgres.PostgreDB, error) {
	db, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error(ctx, "Failed to setup database", err)
		return nil, err
	}

	if cfg.Migrate {
		if err := migrations.Up(ctx, db.Pool); err != nil {
			db.Pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info(ctx, "database migrations applied")
	}

	return db, nil
}

// waitForShutdown blocks until a run error or a termination signal.
func waitForShutdown(ctx context.Context, errCh <-chan error, log logger.Logger) error {
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		log.Info(ctx, "shuting down application", "signal", sig.String())
		return nil
	case <-ctx.Done():
		return nil
	}
}
