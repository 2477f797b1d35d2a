package logger

import (
	"fmt"
	"os"

	"lead-chat/pkg/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 全局日志记录器, 未初始化时丢弃所有输出
var L = zap.NewNop()

// InitLogger 生产模式输出JSON, 否则输出彩色控制台格式; 级别无法解析时退回 info
func InitLogger(cfg config.LogConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using info: %v\n", cfg.Level, err)
		level = zapcore.InfoLevel
	}

	zcfg := zap.NewDevelopmentConfig()
	if cfg.ProductionMode {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	l, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize zap logger: %w", err)
	}
	L = l

	L.Info("Zap logger initialized", zap.String("level", level.String()), zap.Bool("productionMode", cfg.ProductionMode))
	return nil
}

// Replace 替换全局记录器并返回恢复函数, 测试中配合 zaptest/observer 使用
func Replace(l *zap.Logger) (restore func()) {
	previous := L
	L = l
	return func() { L = previous }
}

// 退出前刷新缓冲的日志
func Sync() {
	_ = L.Sync()
}
