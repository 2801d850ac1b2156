package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	iofs "github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mediavault/services/media-api/migrations"
)

const migrationsTable = "media_schema_migrations"

// AutoMigrate applies all pending SQL migrations bundled with the service.
func AutoMigrate(ctx context.Context, gormDB *gorm.DB, log zerolog.Logger) (err error) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			log.Debug().Str("file", entry.Name()).Msg("found migration file")
		}
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("retrieve sql db: %w", err)
	}

	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire dedicated connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("initialize postgres driver: %w", err)
	}
	defer func() {
		if closeErr := driver.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close migration connection: %w", closeErr)
		}
	}()

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	version, dirty, err := migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info().Msg("no media migrations applied yet")
	case err != nil:
		log.Warn().Err(err).Msg("read migration version")
	case dirty:
		// A failed run leaves the version dirty; force it so Up can retry.
		log.Warn().Uint("version", version).Msg("database is in dirty state, forcing version")
		if forceErr := migrator.Force(int(version)); forceErr != nil {
			return fmt.Errorf("force version %d to clear dirty state: %w", version, forceErr)
		}
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	if finalVersion, _, versionErr := migrator.Version(); versionErr == nil {
		log.Info().Uint("version", finalVersion).Msg("applied media record migrations")
	}
	return nil
}
