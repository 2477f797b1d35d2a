package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead-chat/internal/api"
	"lead-chat/internal/metrics"
	"lead-chat/internal/middleware"
	"lead-chat/internal/repository"
	"lead-chat/internal/service"
	"lead-chat/internal/storage"
	internalws "lead-chat/internal/websocket"
	"lead-chat/pkg/config"
	"lead-chat/pkg/db"
	"lead-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 初始化配置
	if err := config.Init(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GlobalConfig

	if err := logger.InitLogger(cfg.Log); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	// 初始化数据库连接
	if err := db.InitDB(cfg.Database.DSN); err != nil {
		logger.L.Fatal("Failed to initialize database", zap.Error(err))
	}

	metrics.Init()

	hub, err := internalws.CreateHub(cfg.Messaging)
	if err != nil {
		logger.L.Fatal("Failed to create hub", zap.Error(err))
	}
	if err := internalws.StartHub(hub); err != nil {
		logger.L.Fatal("Failed to start hub", zap.Error(err))
	}
	defer internalws.StopHub(hub)

	store, err := storage.NewStore(context.Background(), cfg.Storage)
	if err != nil {
		logger.L.Fatal("Failed to create attachment store", zap.Error(err))
	}
	localStore, _ := store.(*storage.LocalStore)

	userRepo := repository.NewUserRepository(db.DB)
	leadRepo := repository.NewLeadRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)
	mentionRepo := repository.NewMentionRepository(db.DB)
	attachmentRepo := repository.NewAttachmentRepository(db.DB)

	router := api.NewRouter(api.RouterDeps{
		UserRepo:          userRepo,
		AuthService:       service.NewAuthService(userRepo),
		LeadService:       service.NewLeadService(leadRepo),
		ChatService:       service.NewChatService(hub, messageRepo, mentionRepo, userRepo, leadRepo, cfg.Chat.MaxBodyLength),
		AttachmentService: service.NewAttachmentService(store, attachmentRepo, leadRepo, cfg.Storage),
		Hub:               hub,
		LocalStore:        localStore,
		SendLimiter:       middleware.NewUserRateLimiter(cfg.Chat.SendRatePerSecond, cfg.Chat.SendBurst),
		ClientOptions:     internalws.OptionsFromConfig(cfg.WebSocket),
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.L.Info("Server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.L.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.L.Error("Server forced to shutdown", zap.Error(err))
	}
}
