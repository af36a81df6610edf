package database

import (
	"fmt"

	"vendor-service/internal/model"
	"vendor-service/pkg/config"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the configured database, applies pool settings and runs migrations
func InitDB(config *config.Config) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	logLevel := getLogLevel(config)

	switch config.DB.Driver {
	case "sqlite":
		db, err = OpenSQLite(config.DB.SQLitePath, logLevel)
	default:
		pgConfig := postgres.Config{
			DSN:                  config.DB.GetDSN(),
			PreferSimpleProtocol: true, // Disables implicit prepared statement usage
		}
		db, err = gorm.Open(postgres.New(pgConfig), &gorm.Config{
			Logger: logger.Default.LogMode(logLevel),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}

	if config.DB.Driver == "sqlite" {
		// a single writer connection keeps sqlite transactions from hitting SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(config.DB.MaxIdleConns)
		sqlDB.SetMaxOpenConns(config.DB.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(config.DB.ConnMaxLifetime)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// OpenSQLite opens an embedded sqlite database with foreign keys enforced
func OpenSQLite(path string, logLevel logger.LogLevel) (*gorm.DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
}

// Migrate runs AutoMigrate for every model
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	return nil
}

func getLogLevel(config *config.Config) logger.LogLevel {
	logLevel := logger.Error
	if config.Server.Env == "development" {
		logLevel = logger.Info
	}

	// Override log level if explicitly set in config
	switch config.DB.LogLevel {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	}
	return logLevel
}
