package repository

import (
	"testing"

	"lead-chat/internal/model"
	"lead-chat/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create(t *testing.T) {
	repo := NewUserRepository(testutil.NewDB(t))

	// 创建测试用户数据
	user := &model.User{
		Username:    "testuser",
		Name:        "Test User",
		Password:    "testpass",
		Email:       "test@example.com",
		Avatar:      "default.png",
		Mentionable: true,
	}

	require.NoError(t, repo.Create(user))

	// 验证用户是否被正确创建
	found, err := repo.FindByUsername("testuser")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.Email, found.Email)
}

func TestUserRepository_FindMissingReturnsNil(t *testing.T) {
	repo := NewUserRepository(testutil.NewDB(t))

	tests := []struct {
		name string
		find func() (*model.User, error)
	}{
		{"by username", func() (*model.User, error) { return repo.FindByUsername("nonexistent") }},
		{"by email", func() (*model.User, error) { return repo.FindByEmail("none@example.com") }},
		{"by id", func() (*model.User, error) { return repo.FindByID(999) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := tt.find()
			assert.NoError(t, err)
			assert.Nil(t, user)
		})
	}
}

func TestUserRepository_FindByEmailAndID(t *testing.T) {
	conn := testutil.NewDB(t)
	repo := NewUserRepository(conn)
	created := testutil.CreateUser(t, conn, "emailuser", "Email User")

	found, err := repo.FindByEmail("emailuser@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	byID, err := repo.FindByID(created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "emailuser", byID.Username)

	exists, err := repo.Exists(created.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserRepository_FindMentionable(t *testing.T) {
	conn := testutil.NewDB(t)
	repo := NewUserRepository(conn)

	testutil.CreateUser(t, conn, "zoe", "Zoe")
	testutil.CreateUser(t, conn, "adam", "Adam")
	hidden := testutil.CreateUser(t, conn, "bot", "Bot")
	require.NoError(t, conn.Model(hidden).Update("mentionable", false).Error)

	users, err := repo.FindMentionable()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Adam", users[0].Name)
	assert.Equal(t, "Zoe", users[1].Name)
}
