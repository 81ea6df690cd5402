// Package config loads the serve-time configuration: listener addresses,
// the edit cooldown and the external identity-check endpoints. Values come
// from an optional YAML file with SCRAWL_-prefixed environment overrides;
// a missing file means all defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultContests maps group selectors to contest identifiers on the
// external platform. Index 0 is a placeholder; group selectors start at 1.
var DefaultContests = []int{0, 31027, 32030, 33030, 34030, 35025}

// Config is the full serve configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Canvas CanvasConfig `mapstructure:"canvas"`
	Verify VerifyConfig `mapstructure:"verify"`
}

// ServerConfig holds the listener and logging settings.
type ServerConfig struct {
	WSAddr    string `mapstructure:"ws_addr"`   // WebSocket listener
	HTTPAddr  string `mapstructure:"http_addr"` // token issuance + static assets
	StaticDir string `mapstructure:"static_dir"`
	LogLevel  string `mapstructure:"log_level"`
}

// CanvasConfig holds the edit rate-limit settings.
type CanvasConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"` // min interval between uses of one token
}

// VerifyConfig holds the external identity-check settings. An empty
// endpoint disables verification, which makes every issuance request fail
// with invalid credentials.
type VerifyConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Groups   []int  `mapstructure:"groups"`
}

// Load reads the configuration from path. An empty path skips the file and
// returns defaults plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("server.ws_addr", ":9000")
	v.SetDefault("server.http_addr", ":8000")
	v.SetDefault("server.static_dir", "static")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("canvas.cooldown", time.Minute)
	v.SetDefault("verify.endpoint", "")
	v.SetDefault("verify.groups", DefaultContests)

	v.SetEnvPrefix("SCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.WSAddr == "" {
		return fmt.Errorf("server.ws_addr must not be empty")
	}
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr must not be empty")
	}
	if c.Canvas.Cooldown < 0 {
		return fmt.Errorf("canvas.cooldown must not be negative, got %s", c.Canvas.Cooldown)
	}
	if len(c.Verify.Groups) < 2 {
		return fmt.Errorf("verify.groups needs the placeholder entry plus at least one contest")
	}
	return nil
}
