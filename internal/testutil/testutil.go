// Package testutil 提供测试用的内存数据库和数据构造帮助函数
package testutil

import (
	"fmt"
	"testing"

	"lead-chat/internal/model"
	"lead-chat/pkg/db"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB 为每个测试打开独立的内存SQLite数据库并完成迁移
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := db.Open(sqlite.Open(dsn))
	require.NoError(t, err, "Failed to open test database")

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func CreateUser(t *testing.T, conn *gorm.DB, username, name string) *model.User {
	t.Helper()
	user := &model.User{
		Username:    username,
		Name:        name,
		Email:       fmt.Sprintf("%s@example.com", username),
		Password:    "testpassword",
		Mentionable: true,
	}
	require.NoError(t, conn.Create(user).Error, "Failed to create test user %s", username)
	return user
}

func CreateLead(t *testing.T, conn *gorm.DB, name string, ownerID uint) *model.Lead {
	t.Helper()
	lead := &model.Lead{Name: name, OwnerID: ownerID}
	require.NoError(t, conn.Create(lead).Error, "Failed to create test lead %s", name)
	return lead
}
