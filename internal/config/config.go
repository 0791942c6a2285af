package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis    RedisConfig
	Analysis AnalysisConfig
	Closure  ClosureConfig
	Limits   RateLimitConfig

	// BootstrapAdmin is created on startup when its email is set.
	BootstrapAdmin BootstrapAdminConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis endpoint was configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type AnalysisConfig struct {
	URL     string
	Timeout time.Duration
}

// RateLimitConfig bounds how often one user may move money.
type RateLimitConfig struct {
	Enabled    bool
	WriteRate  float64
	WriteBurst int
}

type BootstrapAdminConfig struct {
	Name  string
	Email string
}

type ClosureConfig struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewFundingConfigHolder),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("APP_SERVICE", "pitchfund")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("DATABASE_TYPE", "postgres")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_NAME", "postgres")
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_IDLE_CONN", 10)
	v.SetDefault("DATABASE_MAX_OPEN_CONN", 50)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", 300)
	v.SetDefault("DATABASE_CONN_MAX_IDLE_TIME", 60)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ANALYSIS_TIMEOUT", 15*time.Second)
	v.SetDefault("CLOSURE_WORKER_ENABLED", true)
	v.SetDefault("CLOSURE_WORKER_INTERVAL", time.Minute)
	v.SetDefault("CLOSURE_WORKER_BATCH_SIZE", 25)
	v.SetDefault("BOOTSTRAP_ADMIN_NAME", "Platform Admin")
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_WRITE_RATE", 2.0)
	v.SetDefault("RATE_LIMIT_WRITE_BURST", 10)

	return Config{
		AppName:           v.GetString("APP_SERVICE"),
		AppVersion:        v.GetString("APP_VERSION"),
		Environment:       v.GetString("ENVIRONMENT"),
		HTTPAddr:          v.GetString("HTTP_ADDR"),
		OTLPEndpoint:      v.GetString("OTLP_ENDPOINT"),
		DBType:            strings.ToLower(strings.TrimSpace(v.GetString("DATABASE_TYPE"))),
		DBHost:            v.GetString("DATABASE_HOST"),
		DBPort:            v.GetString("DATABASE_PORT"),
		DBName:            v.GetString("DATABASE_NAME"),
		DBUser:            v.GetString("DATABASE_USER"),
		DBPassword:        v.GetString("DATABASE_PASSWORD"),
		DBSSLMode:         v.GetString("DATABASE_SSLMODE"),
		DBMaxIdleConn:     v.GetInt("DATABASE_MAX_IDLE_CONN"),
		DBMaxOpenConn:     v.GetInt("DATABASE_MAX_OPEN_CONN"),
		DBConnMaxLifetime: v.GetInt("DATABASE_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTime: v.GetInt("DATABASE_CONN_MAX_IDLE_TIME"),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(v.GetString("REDIS_ADDR")),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Analysis: AnalysisConfig{
			URL:     strings.TrimSpace(v.GetString("ANALYSIS_URL")),
			Timeout: v.GetDuration("ANALYSIS_TIMEOUT"),
		},
		Closure: ClosureConfig{
			Enabled:   v.GetBool("CLOSURE_WORKER_ENABLED"),
			Interval:  v.GetDuration("CLOSURE_WORKER_INTERVAL"),
			BatchSize: v.GetInt("CLOSURE_WORKER_BATCH_SIZE"),
		},
		Limits: RateLimitConfig{
			Enabled:    v.GetBool("RATE_LIMIT_ENABLED"),
			WriteRate:  v.GetFloat64("RATE_LIMIT_WRITE_RATE"),
			WriteBurst: v.GetInt("RATE_LIMIT_WRITE_BURST"),
		},
		BootstrapAdmin: BootstrapAdminConfig{
			Name:  strings.TrimSpace(v.GetString("BOOTSTRAP_ADMIN_NAME")),
			Email: strings.ToLower(strings.TrimSpace(v.GetString("BOOTSTRAP_ADMIN_EMAIL"))),
		},
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}
