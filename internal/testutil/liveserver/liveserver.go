// Package liveserver 在 httptest 上启动完整的服务端栈, 供客户端测试使用
package liveserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"lead-chat/internal/api"
	"lead-chat/internal/middleware"
	"lead-chat/internal/repository"
	"lead-chat/internal/service"
	"lead-chat/internal/storage"
	"lead-chat/internal/testutil"
	internalws "lead-chat/internal/websocket"
	"lead-chat/pkg/config"

	"github.com/stretchr/testify/require"
)

// Password Register 使用的统一密码
const Password = "password123"

// Start 调用方需先执行 config.InitTest
func Start(t *testing.T) *httptest.Server {
	t.Helper()
	conn := testutil.NewDB(t)
	userRepo := repository.NewUserRepository(conn)
	leadRepo := repository.NewLeadRepository(conn)

	storageCfg := config.GlobalConfig.Storage
	storageCfg.Local.Path = t.TempDir()
	localStore, err := storage.NewLocalStore(storageCfg.Local)
	require.NoError(t, err)

	hub := internalws.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	router := api.NewRouter(api.RouterDeps{
		UserRepo:    userRepo,
		AuthService: service.NewAuthService(userRepo),
		LeadService: service.NewLeadService(leadRepo),
		ChatService: service.NewChatService(hub,
			repository.NewMessageRepository(conn),
			repository.NewMentionRepository(conn),
			userRepo, leadRepo, config.GlobalConfig.Chat.MaxBodyLength),
		AttachmentService: service.NewAttachmentService(localStore, repository.NewAttachmentRepository(conn), leadRepo, storageCfg),
		Hub:               hub,
		LocalStore:        localStore,
		SendLimiter:       middleware.NewUserRateLimiter(config.GlobalConfig.Chat.SendRatePerSecond, config.GlobalConfig.Chat.SendBurst),
		ClientOptions:     internalws.OptionsFromConfig(config.GlobalConfig.WebSocket),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// Register 通过注册接口创建用户, 显示名即 name
func Register(t *testing.T, server *httptest.Server, username, name string) {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"username": username,
		"name":     name,
		"password": Password,
		"email":    username + "@example.com",
	})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}
