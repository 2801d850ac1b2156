package database

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"mediavault/services/media-api/internal/config"
)

func TestConfigFromUsesPoolSettings(t *testing.T) {
	cfg := &config.Config{
		DBPostgresqlWriteDSN: "postgres://media:media@db:5432/media?sslmode=disable",
		DBMaxIdleConns:       3,
		DBMaxOpenConns:       9,
		DBConnLifetime:       time.Minute,
	}

	got := ConfigFrom(cfg)
	assert.Equal(t, cfg.DBPostgresqlWriteDSN, got.DSN)
	assert.Equal(t, 3, got.MaxIdleConns)
	assert.Equal(t, 9, got.MaxOpenConns)
	assert.Equal(t, time.Minute, got.ConnMaxLifetime)
	assert.Equal(t, gormlogger.Warn, got.LogLevel)
}

func TestAdminTarget(t *testing.T) {
	admin, name, ok := adminTarget("postgres://media:secret@db:5432/media_assets?sslmode=disable")
	require.True(t, ok)
	assert.Equal(t, "media_assets", name)
	assert.Equal(t, "postgres://media:secret@db:5432/postgres?sslmode=disable", admin)

	for _, dsn := range []string{
		"host=db user=media dbname=media sslmode=disable",
		"postgres://media:secret@db:5432/postgres",
		"postgres://media:secret@db:5432/",
	} {
		_, _, ok := adminTarget(dsn)
		assert.False(t, ok, dsn)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"media"`, pqQuoteIdentifier("media"))
	assert.Equal(t, `"we""ird"`, pqQuoteIdentifier(`we"ird`))
}

func TestConnectRejectsEmptyDSN(t *testing.T) {
	_, err := Connect(Config{})
	require.Error(t, err)
}

func TestOpenStopsWhenContextIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx, &config.Config{}, zerolog.Nop())
	require.Error(t, err)
}
