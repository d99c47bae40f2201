package messenger

import (
	"testing"

	"chat-service/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// One connection, one in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Message{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, name string) *model.User {
	t.Helper()

	user := &model.User{
		Email:    email,
		Name:     name,
		Password: "irrelevant",
		Role:     "user",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
