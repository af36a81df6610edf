package database

import (
	"path/filepath"
	"testing"

	"vendor-service/internal/model"
	"vendor-service/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestInitDBWithSQLite(t *testing.T) {
	cfg := &config.Config{
		DB: config.DBConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(t.TempDir(), "vendors.db"),
			LogLevel:   "silent",
		},
		Server: config.ServerConfig{Env: "test"},
	}

	db, err := InitDB(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	// sqlite runs on a single connection
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	for _, m := range model.AllModels() {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestGetLogLevel(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Env: "development"}}
	assert.Equal(t, logger.Info, getLogLevel(cfg))

	cfg.Server.Env = "production"
	assert.Equal(t, logger.Error, getLogLevel(cfg))

	cfg.DB.LogLevel = "warn"
	assert.Equal(t, logger.Warn, getLogLevel(cfg))
}
