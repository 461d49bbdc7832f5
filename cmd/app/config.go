package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sydai_backend/internal/cache"
	"sydai_backend/internal/repository"
	"sydai_backend/pkg/telemetry"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
	envPrefix    = "APP"
)

type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Database  repository.Config `mapstructure:"database"`
	Redis     cache.Config      `mapstructure:"redis"`
	Session   SessionConfig     `mapstructure:"session"`
	Checkin   CheckinConfig     `mapstructure:"checkin"`
	Referral  ReferralConfig    `mapstructure:"referral"`
	RateLimit RateLimitConfig   `mapstructure:"rateLimit"`
	Telemetry telemetry.Config  `mapstructure:"telemetry"`

	LogLevel string `mapstructure:"logLevel"`
	Seed     bool   `mapstructure:"seed"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	AllowedOrigins  []string      `mapstructure:"allowedOrigins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type SessionConfig struct {
	Secret       string        `mapstructure:"secret"`
	TTL          time.Duration `mapstructure:"ttl"`
	SecureCookie bool          `mapstructure:"secureCookie"`
}

type CheckinConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type ReferralConfig struct {
	BaseURL string `mapstructure:"baseUrl"`
}

type RateLimitConfig struct {
	Messages int           `mapstructure:"messages"`
	Checkins int           `mapstructure:"checkins"`
	Window   time.Duration `mapstructure:"window"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowedOrigins", []string{})
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("database.driver", repository.DriverMemory)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "sydai")
	v.SetDefault("database.path", "sydai.db")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", 7*24*time.Hour)
	v.SetDefault("session.secureCookie", false)

	v.SetDefault("checkin.timezone", "UTC")
	v.SetDefault("referral.baseUrl", "http://localhost:5000")

	v.SetDefault("rateLimit.messages", cache.DefaultMessageLimit)
	v.SetDefault("rateLimit.checkins", cache.DefaultCheckinLimit)
	v.SetDefault("rateLimit.window", cache.RateLimitWindow)

	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.serviceName", "sydai-backend")

	v.SetDefault("logLevel", "info")
	v.SetDefault("seed", false)
}

func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	return loadConfig(viper.New(), configPath)
}

func loadConfig(v *viper.Viper, path string) (*Config, error) {
	v.SetConfigName(configName)
	v.AddConfigPath(path)
	v.SetConfigType(configFormat)

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case repository.DriverMemory, repository.DriverSQLite, repository.DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Session.Secret == "" {
		return errors.New("session.secret is required")
	}

	if _, err := time.LoadLocation(c.Checkin.Timezone); err != nil {
		return fmt.Errorf("invalid checkin.timezone %q: %w", c.Checkin.Timezone, err)
	}

	return nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Checkin.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
