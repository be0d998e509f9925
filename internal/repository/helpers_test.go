package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JJediny/heimdall2/internal/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.ConnectSQLite(database.MemorySQLiteDSN(uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
