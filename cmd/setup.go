package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plylist/internal/shared"
	"github.com/desertthunder/plylist/internal/storage"
)

// Init writes config.toml from the template when it is missing and prepares the configured
// storage backend. For sqlite the migrations are applied and reported.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		config.ApplyEnv()
		r.config = config
		r.configPath = configPath
		r.writePlain("✓ Created %s\n", configPath)
	} else {
		r.writePlain("✓ Using %s\n", configPath)
	}

	if err := r.config.Validate(); err != nil {
		return err
	}

	if r.config.Storage.Backend == storage.SQLiteBackend {
		if err := r.migrate(); err != nil {
			return err
		}
	}

	m, err := r.open()
	if err != nil {
		return err
	}
	stats, err := m.Stats()
	if err != nil {
		return err
	}

	r.writePlain("✓ %s storage ready at %s (%d playlists)\n", stats.Backend, stats.Location, stats.TotalPlaylists)
	if len(stats.Platforms) == 0 {
		r.writePlain("  No platforms configured yet; add credentials to %s\n", configPath)
	} else {
		for _, name := range stats.Platforms {
			r.writePlain("  Platform: %s\n", name)
		}
	}
	return nil
}

// migrate applies pending migrations to the configured database.
func (r *Runner) migrate() error {
	cfg := r.config.Database
	r.logger.Info("initializing database", "path", cfg.Path)

	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)

	applied, err := shared.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, err := shared.CurrentVersion(db)
	if err != nil {
		return err
	}

	r.writePlain("✓ Applied %d migration(s), schema version %d\n", applied, version)
	return nil
}
