package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"

	defaultSQLitePath = "poolmini.db"
	minSessionTTL     = time.Second
)

// Config holds the application settings.
type Config struct {
	TelegramToken  string        `mapstructure:"telegram_token"`
	DatabaseURL    string        `mapstructure:"database_url"`
	DatabaseType   string        `mapstructure:"database_type"`
	HTTPAddr       string        `mapstructure:"http_addr"`
	LogLevel       string        `mapstructure:"log_level"`
	CacheDir       string        `mapstructure:"cache_dir"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	NotifyInterval time.Duration `mapstructure:"notify_interval"`
	NotifyLead     time.Duration `mapstructure:"notify_lead"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	Warnings       []string      `mapstructure:"-"`
}

// New returns a viper instance with defaults and env bindings. Callers may
// bind flags to it before passing it to Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("poolmini")
	v.AddConfigPath(".")

	v.SetDefault("database_type", DatabaseSQLite)
	v.SetDefault("http_addr", ":3318")
	v.SetDefault("log_level", "info")
	v.SetDefault("cache_dir", "")
	v.SetDefault("cache_ttl", 24*time.Hour)
	v.SetDefault("notify_interval", time.Minute)
	v.SetDefault("notify_lead", 15*time.Minute)
	v.SetDefault("session_ttl", 30*time.Minute)

	v.SetEnvPrefix("POOLMINI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// unprefixed names kept for existing deployments
	_ = v.BindEnv("telegram_token", "TELEGRAM_BOT_TOKEN", "POOLMINI_TELEGRAM_TOKEN")
	_ = v.BindEnv("database_url", "DATABASE_URL", "POOLMINI_DATABASE_URL")
	return v
}

// Load reads .env (if present), an optional config file and the
// environment into a Config.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finish() error {
	c.DatabaseType = strings.ToLower(strings.TrimSpace(c.DatabaseType))
	switch c.DatabaseType {
	case DatabaseSQLite:
		if c.DatabaseURL == "" {
			c.DatabaseURL = defaultSQLitePath
			c.Warnings = append(c.Warnings, "DATABASE_URL not set, using "+defaultSQLitePath)
		}
	case DatabasePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL required for postgres")
		}
	default:
		return fmt.Errorf("unknown database type %q", c.DatabaseType)
	}

	if c.TelegramToken == "" {
		c.Warnings = append(c.Warnings, "TELEGRAM_BOT_TOKEN not set, bot disabled")
	}
	if c.NotifyInterval <= 0 {
		return errors.New("notify_interval must be positive")
	}
	if c.SessionTTL < minSessionTTL {
		return fmt.Errorf("session_ttl must be at least %s", minSessionTTL)
	}
	return nil
}

// BotEnabled reports whether a Telegram token is configured.
func (c *Config) BotEnabled() bool { return c.TelegramToken != "" }

// CacheEnabled reports whether the pool snapshot cache should run.
func (c *Config) CacheEnabled() bool { return c.CacheDir != "" }
