// Package config loads harvest settings from an optional YAML file and the
// environment, then validates them.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/gh-harvest/pkg/client"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. HARVEST_PER_PAGE.
const EnvPrefix = "HARVEST"

// ErrMissingToken is returned by Validate when no credential is configured.
var ErrMissingToken = client.ErrMissingToken

// Config is the complete run configuration.
type Config struct {
	Token               string        `mapstructure:"token" validate:"required"`
	BaseURL             string        `mapstructure:"base_url" validate:"required,url"`
	StartPage           int           `mapstructure:"start_page" validate:"min=1"`
	PerPage             int           `mapstructure:"per_page" validate:"min=1,max=100"`
	CourtesyDelay       time.Duration `mapstructure:"courtesy_delay" validate:"min=0s"`
	MaxForbiddenRetries int           `mapstructure:"max_forbidden_retries" validate:"min=0"`
	Timeout             time.Duration `mapstructure:"timeout" validate:"min=1s"`

	// Output is the JSON file path. Ignored when Console is set.
	Output  string `mapstructure:"output"`
	Console bool   `mapstructure:"console"`

	// MetricsAddr serves /metrics when non-empty.
	MetricsAddr string `mapstructure:"metrics_addr"`

	Redis RedisConfig `mapstructure:"redis"`
	Log   LogConfig   `mapstructure:"log"`
}

// RedisConfig enables the response cache when Addr is set.
type RedisConfig struct {
	Addr string        `mapstructure:"addr"`
	DB   int           `mapstructure:"db" validate:"min=0"`
	TTL  time.Duration `mapstructure:"ttl" validate:"min=1s"`
}

// LogConfig controls the zerolog setup.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Pretty bool   `mapstructure:"pretty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("token", "")
	v.SetDefault("base_url", client.DefaultBaseURL)
	v.SetDefault("start_page", 1)
	v.SetDefault("per_page", 30)
	v.SetDefault("courtesy_delay", time.Second)
	v.SetDefault("max_forbidden_retries", 0)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("output", "res.json")
	v.SetDefault("console", false)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 10*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Load reads path (skipped when empty) and HARVEST_* environment variables.
// The token additionally falls back to GITHUB_TOKEN. The result is not
// validated so callers can apply flag overrides first.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if err := v.BindEnv("token", EnvPrefix+"_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind token env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints. A missing token yields ErrMissingToken.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.StructNamespace() == "Config.Token" {
			return fmt.Errorf("%w: set GITHUB_TOKEN, %s_TOKEN or --token", ErrMissingToken, EnvPrefix)
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// RedisEnabled reports whether a response cache is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}
