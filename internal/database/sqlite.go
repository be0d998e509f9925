package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ConnectSQLite opens a SQLite database with foreign keys enforced. It backs
// local development (HEIMDALL_DATABASE_URL=file:...) and the test suites.
func ConnectSQLite(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn must not be empty")
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite handle: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps in-memory databases alive.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
	}

	return db, nil
}

// MemorySQLiteDSN returns a DSN for a private named in-memory database.
func MemorySQLiteDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
}

// Connect picks the driver from the DSN scheme: file: URLs use SQLite, anything else Postgres.
func Connect(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, "file:") {
		return ConnectSQLite(dsn)
	}
	return ConnectPostgres(dsn)
}
