// Package credstore opens the credential repository selected in config.
package credstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/subscout-dev/subscout/internal/config"
	"github.com/subscout-dev/subscout/internal/credentials"
	"github.com/subscout-dev/subscout/internal/credentials/filestore"
	"github.com/subscout-dev/subscout/internal/credentials/postgres"
	"github.com/subscout-dev/subscout/internal/credentials/sqlite"
)

// Open returns the repository for cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) (credentials.Repository, error) {
	switch cfg.Driver {
	case config.DriverFile, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("store.path is required for the %s driver", config.DriverFile)
		}
		return filestore.New(cfg.Path), nil
	case config.DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("store.path is required for the %s driver", config.DriverSQLite)
		}
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		log.Debug().Str("path", cfg.Path).Msg("opened sqlite credential store")
		return s, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, postgres.Config{DSN: cfg.DSN}, log)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
