package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/d60-Lab/newsfeed/internal/apperr"
)

// Config 服务配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Fanout   FanoutConfig   `mapstructure:"fanout"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// 每个 actor 每秒请求数，0 表示不限流
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rate_burst" validate:"gte=0"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	UserCacheSize   int           `mapstructure:"user_cache_size" validate:"gte=0"`
	UserCacheTTL    time.Duration `mapstructure:"user_cache_ttl" validate:"gte=0"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db" validate:"gte=0"`
	FollowerTTL time.Duration `mapstructure:"follower_ttl" validate:"gt=0"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret" validate:"required,min=8"`
	TTL    time.Duration `mapstructure:"ttl" validate:"gt=0"`
	Issuer string        `mapstructure:"issuer"`
}

// FanoutConfig 扇出参数
type FanoutConfig struct {
	// sync: 发帖请求内直接扇出，失败由 worker 兜底；async: 只写 outbox
	Mode         string        `mapstructure:"mode" validate:"oneof=sync async"`
	BatchSize    int           `mapstructure:"batch_size" validate:"gt=0,lte=2000"`
	Workers      int           `mapstructure:"workers" validate:"gt=0"`
	ClaimLimit   int           `mapstructure:"claim_limit" validate:"gt=0"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// 每秒写入的 chunk 数上限，0 表示不限速
	ChunksPerSecond float64       `mapstructure:"chunks_per_second" validate:"gte=0"`
	MaxRetries      uint64        `mapstructure:"max_retries"`
	RetryBase       time.Duration `mapstructure:"retry_base" validate:"gt=0"`
	StaleAfter      time.Duration `mapstructure:"stale_after" validate:"gt=0"`
	ReaperSpec      string        `mapstructure:"reaper_spec" validate:"required"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name" validate:"required"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=newsfeed port=5432 sslmode=disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.user_cache_size", 10000)
	v.SetDefault("database.user_cache_ttl", 30*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.follower_ttl", 5*time.Minute)

	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("jwt.issuer", "newsfeed")

	v.SetDefault("fanout.mode", "sync")
	v.SetDefault("fanout.batch_size", 500)
	v.SetDefault("fanout.workers", 4)
	v.SetDefault("fanout.claim_limit", 64)
	v.SetDefault("fanout.poll_interval", 200*time.Millisecond)
	v.SetDefault("fanout.timeout", 30*time.Second)
	v.SetDefault("fanout.chunks_per_second", 0.0)
	v.SetDefault("fanout.max_retries", 3)
	v.SetDefault("fanout.retry_base", 100*time.Millisecond)
	v.SetDefault("fanout.stale_after", 5*time.Minute)
	v.SetDefault("fanout.reaper_spec", "@every 1m")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "newsfeed")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("sentry.environment", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load 读取 config.yaml（可选）与 NEWSFEED_ 前缀环境变量
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom 与 Load 相同，但允许指定配置文件路径
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("NEWSFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, apperr.Fatal(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperr.Fatal(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置，失败时返回 FatalConfiguration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return apperr.Fatal(err, "invalid config: "+strings.Join(fields, ", "))
		}
		return apperr.Fatal(err, "invalid config")
	}
	if _, err := cron.ParseStandard(c.Fanout.ReaperSpec); err != nil {
		return apperr.Fatal(err, "invalid fanout.reaper_spec")
	}
	return nil
}
