package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Messaging MessagingConfig `mapstructure:"messaging"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Chat      ChatConfig      `mapstructure:"chat"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // gin 模式: debug / release / test
}

type LogConfig struct {
	Level          string `mapstructure:"level"`
	ProductionMode bool   `mapstructure:"production_mode"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type WebSocketConfig struct {
	BroadcastBufferSize int `mapstructure:"broadcast_buffer_size"`
	ClientBufferSize    int `mapstructure:"client_buffer_size"`

	WriteWaitSeconds int `mapstructure:"write_wait_seconds"`
	PongWaitSeconds  int `mapstructure:"pong_wait_seconds"`
	MaxMessageSize   int `mapstructure:"max_message_size"`
	// 重试相关配置
	MessageRetryCount      int `mapstructure:"message_retry_count"`
	MessageRetryIntervalMs int `mapstructure:"message_retry_interval_ms"`
}

// 实时推送的消息通道配置
type MessagingConfig struct {
	Provider string      `mapstructure:"provider"` // channel / kafka / redis
	Kafka    KafkaConfig `mapstructure:"kafka"`
	Redis    RedisConfig `mapstructure:"redis"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	TopicPrefix   string   `mapstructure:"topic_prefix"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

type StorageConfig struct {
	Provider     string             `mapstructure:"provider"` // local / s3
	MaxFileSize  int64              `mapstructure:"max_file_size"`
	SignedURLTTL int                `mapstructure:"signed_url_ttl_seconds"`
	AllowedExts  []string           `mapstructure:"allowed_exts"`
	Local        LocalStorageConfig `mapstructure:"local"`
	S3           S3StorageConfig    `mapstructure:"s3"`
}

type LocalStorageConfig struct {
	Path          string `mapstructure:"path"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	SigningSecret string `mapstructure:"signing_secret"`
}

// 访问密钥为空时使用默认凭证链
type S3StorageConfig struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type ChatConfig struct {
	MaxBodyLength     int     `mapstructure:"max_body_length"`
	SendRatePerSecond float64 `mapstructure:"send_rate_per_second"`
	SendBurst         int     `mapstructure:"send_burst"`
}

// SignedURLDuration 返回签名URL的有效期
func (c StorageConfig) SignedURLDuration() time.Duration {
	return time.Duration(c.SignedURLTTL) * time.Second
}

var GlobalConfig Config

func Init() error {
	return load("config")
}

// 测试用的配置文件
func InitTest() error {
	return load("config.test")
}

func load(name string) error {
	// 获取项目根目录
	_, b, _, _ := runtime.Caller(0)
	basepath := filepath.Dir(filepath.Dir(filepath.Dir(b)))

	// .env 不存在时忽略
	_ = godotenv.Load(filepath.Join(basepath, ".env"))

	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(basepath, "config"))
	v.SetEnvPrefix("LEADCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	GlobalConfig = cfg

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.JWT.Expiration <= 0 {
		cfg.JWT.Expiration = 24 * time.Hour
	}
	if cfg.Messaging.Provider == "" {
		cfg.Messaging.Provider = "channel"
	}
	if cfg.Messaging.Kafka.TopicPrefix == "" {
		cfg.Messaging.Kafka.TopicPrefix = "leadchat"
	}
	if cfg.Messaging.Redis.ChannelPrefix == "" {
		cfg.Messaging.Redis.ChannelPrefix = "leadchat"
	}
	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = "local"
	}
	if cfg.Storage.MaxFileSize <= 0 {
		cfg.Storage.MaxFileSize = 50 * 1024 * 1024 // 默认50MB
	}
	// 签名URL固定为短时效
	if cfg.Storage.SignedURLTTL <= 0 || cfg.Storage.SignedURLTTL > 60 {
		cfg.Storage.SignedURLTTL = 60
	}
	if cfg.Storage.Local.Path == "" {
		cfg.Storage.Local.Path = "uploads"
	}
	if cfg.Chat.MaxBodyLength <= 0 {
		cfg.Chat.MaxBodyLength = 4000
	}
	if cfg.Chat.SendRatePerSecond <= 0 {
		cfg.Chat.SendRatePerSecond = 5
	}
	if cfg.Chat.SendBurst <= 0 {
		cfg.Chat.SendBurst = 10
	}
}
