package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pluto/internal/shared"
)

// SetupDatabase initializes the database and runs migrations, or rolls back the latest one.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	target := r.config.Database.Path
	if r.config.Database.Driver == shared.DriverPostgres {
		target = "postgres"
	}

	if cmd.Bool("rollback") {
		db := r.db
		if db == nil {
			var err error
			if db, err = shared.OpenDatabase(r.config.Database); err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()
		}

		r.logger.Info("rolling back latest migration", "database", target)
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return r.writePlain("✓ Rolled back latest migration\n")
	}

	r.logger.Info("initializing database", "driver", r.config.Database.Driver, "database", target)
	if _, err := r.database(); err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", target)
	return r.writePlain("✓ Database ready: %s\n", target)
}

// SetupConfig writes the embedded example config to disk.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Config written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set server.session_key and server.jwt_secret (or PLUTO_SESSION_KEY / PLUTO_JWT_SECRET)\n")
	r.writePlain("2. Set youtube.api_key to enable playlist import\n")
	r.writePlain("3. Run 'pluto setup database' and 'pluto serve'\n")
	return nil
}
