package repositories_test

import (
	"fmt"
	"testing"

	"gemstore/internal/logging"
	"gemstore/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory sqlite database with the schema applied.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repositories.OpenDatabase("sqlite", dsn, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, repositories.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
