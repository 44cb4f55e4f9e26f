// Package db opens the gorm handle every repository shares. Postgres in
// any real deployment; an in-memory SQLite backend when demo mode is
// explicitly allowed, so the app stays runnable without credentials
// while production deployments fail fast on a missing DATABASE_URL.
package db

import (
	"errors"

	"github.com/causabona/donare/internal/config"
	"github.com/causabona/donare/internal/migration"
	"github.com/glebarez/sqlite"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var ErrNoDatabase = errors.New("db: DATABASE_URL is required (or set ALLOW_DEMO_MODE=true)")

var Module = fx.Module("db",
	fx.Provide(Open),
)

func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	if cfg.DatabaseURL != "" {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	}

	if !cfg.AllowDemoMode {
		return nil, ErrNoDatabase
	}

	log.Warn("no DATABASE_URL configured, running demo mode with an in-memory database")
	handle, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	// The in-memory backend starts empty on every boot.
	if err := migration.Run(handle); err != nil {
		return nil, err
	}
	return handle, nil
}
