package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lead-chat/internal/cli"
	"lead-chat/pkg/config"
	"lead-chat/pkg/logger"
)

func main() {
	level := os.Getenv("LEADCHAT_LOG_LEVEL")
	if level == "" {
		level = "error"
	}
	if err := logger.InitLogger(config.LogConfig{Level: level}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
