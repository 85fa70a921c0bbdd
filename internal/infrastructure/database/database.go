package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	*gorm.DB
}

// New creates a new database connection
func New(databaseURL string) (*DB, error) {
	// Configure GORM
	config := &gorm.Config{
		PrepareStmt: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		Logger: logger.Default.LogMode(logger.Warn),
	}

	var db *gorm.DB
	var err error

	// Determine database type based on URL format
	if isSQLiteURL(databaseURL) {
		db, err = gorm.Open(sqlite.Open(databaseURL), config)
	} else {
		db, err = gorm.Open(postgres.Open(databaseURL), config)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool (only for non-SQLite)
	if !isSQLiteURL(databaseURL) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}

		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)

		if err := enableExtensions(db); err != nil {
			return nil, fmt.Errorf("failed to enable extensions: %w", err)
		}
	}

	return &DB{DB: db}, nil
}

// IsPostgres reports whether the connection speaks the postgres dialect.
// Some SQL (row locks, jsonb operators) is only emitted for postgres.
func (db *DB) IsPostgres() bool {
	return db.Dialector.Name() == "postgres"
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (db *DB) Ping() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// AutoMigrate runs database migrations
func (db *DB) AutoMigrate(models ...interface{}) error {
	return db.DB.AutoMigrate(models...)
}

func isSQLiteURL(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "file:") || strings.HasSuffix(databaseURL, ".db")
}

// enableExtensions enables required PostgreSQL extensions
func enableExtensions(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}
