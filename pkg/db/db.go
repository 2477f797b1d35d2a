package db

import (
	"fmt"

	"lead-chat/internal/model"
	"lead-chat/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// 初始化MySQL数据库连接
func InitDB(dsn string) error {
	conn, err := Open(mysql.Open(dsn))
	if err != nil {
		return err
	}
	DB = conn
	return nil
}

// Open 使用给定的方言建立连接并执行自动迁移
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(conn); err != nil {
		return nil, err
	}

	logger.L.Info("Database connected and migrated successfully")
	return conn, nil
}

// 自动迁移模式
func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&model.User{},
		&model.Lead{},
		&model.Message{},
		&model.Mention{},
		&model.Attachment{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
