// Package config loads server configuration from an optional YAML file,
// defaults, and TRIPMATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	// Driver is "sqlite", "postgres" (lib/pq) or "pgx".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type AuthConfig struct {
	// Mode is "remote" (verify-token endpoint) or "jwt" (shared secret).
	Mode       string        `mapstructure:"mode"`
	ServiceURL string        `mapstructure:"service_url"`
	JWTSecret  string        `mapstructure:"jwt_secret"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

const (
	AuthModeRemote = "remote"
	AuthModeJWT    = "jwt"
)

// EnvPrefix prefixes environment overrides, e.g. TRIPMATE_SERVER_PORT=9000.
const EnvPrefix = "TRIPMATE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/tripmate.db")
	v.SetDefault("auth.mode", AuthModeRemote)
	v.SetDefault("auth.service_url", "http://localhost:3000")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.timeout", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "tint")
}

// Load reads configuration from path. With an empty path it looks for an
// optional config.yaml in the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Validate checks the settings that have no usable fallback.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "pgx":
	default:
		return fmt.Errorf("config: unsupported database.driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("config: database.dsn is required")
	}

	switch c.Auth.Mode {
	case AuthModeRemote:
		if c.Auth.ServiceURL == "" {
			return errors.New("config: auth.service_url is required in remote mode")
		}
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return errors.New("config: auth.jwt_secret is required in jwt mode")
		}
	default:
		return fmt.Errorf("config: unsupported auth.mode %q", c.Auth.Mode)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	return nil
}
