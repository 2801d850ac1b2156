package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"mediavault/services/media-api/internal/config"
)

const connectAttempts = 5

// Config controls GORM/PostgreSQL connectivity.
type Config struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        gormlogger.LogLevel
}

// ConfigFrom maps the service configuration onto the pool settings.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		DSN:             cfg.GetDatabaseWriteDSN(),
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

// Open connects to the media metadata database, retrying while the server
// comes up, and applies the bundled migrations.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	logger := log.With().Str("component", "database").Logger()
	dbCfg := ConfigFrom(cfg)

	var db *gorm.DB
	attempt := 0
	connect := func() error {
		attempt++
		conn, err := Connect(dbCfg)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("database not reachable yet")
			return err
		}
		db = conn
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectAttempts-1), ctx)
	if err := backoff.Retry(connect, policy); err != nil {
		return nil, fmt.Errorf("connect media database after %d attempts: %w", attempt, err)
	}

	if err := AutoMigrate(ctx, db, logger); err != nil {
		return nil, err
	}
	logger.Info().Int("attempts", attempt).Msg("media database ready")
	return db, nil
}

// Connect initializes a GORM connection using the provided config.
func Connect(cfg Config) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}

	if err := ensureDatabaseExists(cfg.DSN); err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}

	if cfg.LogLevel == 0 {
		cfg.LogLevel = gormlogger.Warn
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		PrepareStmt: true,
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		Logger: gormlogger.Default.LogMode(cfg.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("retrieve sql db: %w", err)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}

// ensureDatabaseExists creates the target database through the postgres admin database.
func ensureDatabaseExists(dsn string) error {
	adminDSN, dbName, ok := adminTarget(dsn)
	if !ok {
		return nil
	}

	sqlDB, err := sql.Open("postgres", adminDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	var exists bool
	err = sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if exists {
		return nil
	}

	_, err = sqlDB.Exec("CREATE DATABASE " + pqQuoteIdentifier(dbName))
	return err
}

// adminTarget points a URL DSN at the postgres admin database. Key=value DSNs
// and DSNs already naming postgres are skipped.
func adminTarget(dsn string) (adminDSN, dbName string, ok bool) {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "", "", false
	}
	dbName = strings.TrimPrefix(u.Path, "/")
	if dbName == "" || dbName == "postgres" {
		return "", "", false
	}
	admin := *u
	admin.Path = "/postgres"
	return admin.String(), dbName, true
}

func pqQuoteIdentifier(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
