// Package config loads marketdesk settings from defaults, an optional YAML
// file and MARKETDESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides (MARKETDESK_API_BASE_URL).
const EnvPrefix = "MARKETDESK"

// Config is a nil-safe read view over a viper instance.
type Config struct {
	v *viper.Viper
}

// New wraps v. A nil v yields a Config that returns zero values.
func New(v *viper.Viper) *Config {
	if v == nil {
		v = viper.New()
	}
	return &Config{v: v}
}

func (c *Config) GetString(key string) string          { return c.v.GetString(key) }
func (c *Config) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *Config) GetFloat64(key string) float64        { return c.v.GetFloat64(key) }
func (c *Config) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *Config) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *Config) IsSet(key string) bool                { return c.v.IsSet(key) }

// Sub returns the subtree at key. A missing key yields an empty Config.
func (c *Config) Sub(key string) *Config {
	return New(c.v.Sub(key))
}

// Unmarshal decodes the whole configuration into target using mapstructure
// tags.
func (c *Config) Unmarshal(target any) error {
	return c.v.Unmarshal(target)
}

// Settings is the typed form of every key marketdesk reads.
type Settings struct {
	API     APISettings     `mapstructure:"api"`
	Live    LiveSettings    `mapstructure:"live"`
	Sandbox SandboxSettings `mapstructure:"sandbox"`
	Log     LogSettings     `mapstructure:"log"`
}

// APISettings configures the HTTP client.
type APISettings struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Retries       int           `mapstructure:"retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	RateLimit     float64       `mapstructure:"rate_limit"`
	RateBurst     int           `mapstructure:"rate_burst"`
	Token         string        `mapstructure:"token"`
	TokenFile     string        `mapstructure:"token_file"`
	PageSize      int           `mapstructure:"page_size"`
}

// LiveSettings configures the websocket feed.
type LiveSettings struct {
	URL string `mapstructure:"url"`
}

// SandboxSettings configures the local sandbox API.
type SandboxSettings struct {
	Addr          string `mapstructure:"addr"`
	DBPath        string `mapstructure:"db_path"`
	SeedFile      string `mapstructure:"seed_file"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
	JWTSecret     string `mapstructure:"jwt_secret"`
	NoAuth        bool   `mapstructure:"no_auth"`
}

// LogSettings configures the zap logger.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.retries", 3)
	v.SetDefault("api.retry_interval", "1s")
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.rate_burst", 1)
	v.SetDefault("api.token", "")
	v.SetDefault("api.token_file", defaultTokenFile())
	v.SetDefault("api.page_size", 10)
	v.SetDefault("live.url", "")
	v.SetDefault("sandbox.addr", ":8080")
	v.SetDefault("sandbox.db_path", "marketdesk-sandbox.db")
	v.SetDefault("sandbox.seed_file", "")
	v.SetDefault("sandbox.admin_email", "admin@marketdesk.local")
	v.SetDefault("sandbox.admin_password", "")
	v.SetDefault("sandbox.jwt_secret", "")
	v.SetDefault("sandbox.no_auth", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load builds a viper instance from defaults, the config file at path (or
// marketdesk.yaml in the working or user config directory when path is
// empty) and environment overrides. A missing default file is not an error.
func Load(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("marketdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "marketdesk"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// LoadSettings is Load followed by Unmarshal into Settings.
func LoadSettings(path string) (*Settings, *viper.Viper, error) {
	v, err := Load(path)
	if err != nil {
		return nil, nil, err
	}
	var s Settings
	if err := New(v).Unmarshal(&s); err != nil {
		return nil, nil, fmt.Errorf("decode config: %w", err)
	}
	return &s, v, nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".marketdesk-token"
	}
	return filepath.Join(dir, "marketdesk", "token")
}
