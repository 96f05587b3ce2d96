package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env       string `mapstructure:"env"`
	Port      int    `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type MongoConfig struct {
	URI                     string `mapstructure:"uri"`
	Database                string `mapstructure:"database"`
	MessagesCollection      string `mapstructure:"messages_collection"`
	ConversationsCollection string `mapstructure:"conversations_collection"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers           []string `mapstructure:"brokers"`
	TopicNotification string   `mapstructure:"topic_notification"`
}

type CacheConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	ConversationsTTL time.Duration `mapstructure:"conversations_ttl"`
	MessagesTTL      time.Duration `mapstructure:"messages_ttl"`
	OpTimeout        time.Duration `mapstructure:"op_timeout"`
}

type DirectoryConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RetryMaxElapsed time.Duration `mapstructure:"retry_max_elapsed"`
}

type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Mongo     MongoConfig     `mapstructure:"mongodb"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Directory DirectoryConfig `mapstructure:"directory"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	StoreTimeout time.Duration `mapstructure:"store_timeout"`
}

// Load reads config.yaml (optional) and environment overrides, falling back
// to defaults that run against a local stack.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8084)
	v.SetDefault("app.jwt_secret", "")
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "uninest")
	v.SetDefault("mongodb.messages_collection", "messages")
	v.SetDefault("mongodb.conversations_collection", "conversations")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_notification", "notification.requested")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.conversations_ttl", 24*time.Hour)
	v.SetDefault("cache.messages_ttl", 24*time.Hour)
	v.SetDefault("cache.op_timeout", 250*time.Millisecond)
	v.SetDefault("directory.base_url", "http://localhost:8081")
	v.SetDefault("directory.timeout", 3*time.Second)
	v.SetDefault("directory.retry_max_elapsed", 10*time.Second)
	v.SetDefault("rate_limit.limit", 30)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("store_timeout", 5*time.Second)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// A missing file just means defaults + env.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
