// Package config loads host-level resolver settings from a YAML file and
// DIDRESOLVER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pilacorp/go-did-resolver/internal/logger"
)

// Default values
const (
	DefaultFetchTimeout     = 10 * time.Second
	DefaultMaxResponseBytes = 1 << 20
	DefaultUserAgent        = "go-did-resolver"
)

// EnvPrefix prefixes every environment variable, e.g. DIDRESOLVER_FETCH_TIMEOUT.
const EnvPrefix = "DIDRESOLVER"

// Config holds resolver configuration.
type Config struct {
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout" default:"10s" validate:"gt=0"`
	MaxResponseBytes int64         `mapstructure:"max_response_bytes" default:"1048576" validate:"min=1"`
	UserAgent        string        `mapstructure:"user_agent" default:"go-did-resolver" validate:"required"`
	LogLevel         string        `mapstructure:"log_level" default:"WARN" validate:"oneof=DEBUG INFO WARN ERROR"`

	// Methods lists the built-in methods to register.
	Methods []string `mapstructure:"methods" default:"[\"key\",\"jwk\",\"web\",\"webvh\"]" validate:"dive,oneof=key jwk web webvh"`

	// Remote resolution for methods without a built-in resolver
	RemoteResolverURL string   `mapstructure:"remote_resolver_url" validate:"omitempty,url"`
	RemoteMethods     []string `mapstructure:"remote_methods" validate:"dive,required"`
	RemoteAPIKey      string   `mapstructure:"remote_api_key"`

	BatchConcurrency int `mapstructure:"batch_concurrency" default:"8" validate:"min=1"`
}

// Default returns a Config holding only default values.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic("failed to set struct defaults: " + err.Error())
	}
	return cfg
}

// Load reads configuration from path (optional), then from environment
// variables, and validates the result. An empty path searches for
// didresolver.yaml in the working directory and ./config.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("didresolver")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	for _, key := range envKeys() {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logger.Component("config").Debug("no config file found, using environment variables")
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Component("config").Debug("loaded config", "config", cfg)
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(c.RemoteMethods) > 0 && c.RemoteResolverURL == "" {
		return errors.New("invalid config: remote_methods requires remote_resolver_url")
	}
	return nil
}

// LogValue renders the config as a log group. The remote API key is only
// reported as set or unset.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("fetch_timeout", c.FetchTimeout),
		slog.Int64("max_response_bytes", c.MaxResponseBytes),
		slog.String("user_agent", c.UserAgent),
		slog.String("log_level", c.LogLevel),
		slog.String("methods", strings.Join(c.Methods, ",")),
		slog.String("remote_resolver_url", c.RemoteResolverURL),
		slog.String("remote_methods", strings.Join(c.RemoteMethods, ",")),
		slog.Bool("remote_api_key_set", c.RemoteAPIKey != ""),
		slog.Int("batch_concurrency", c.BatchConcurrency),
	)
}

// String formats the config as space separated key=value pairs.
func (c *Config) String() string {
	var sb strings.Builder
	for i, a := range c.LogValue().Group() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(a.Key + "=" + a.Value.String())
	}
	return sb.String()
}

// envKeys returns the mapstructure key of every Config field. Viper only
// consults the environment for keys it knows about.
func envKeys() []string {
	t := reflect.TypeFor[Config]()
	keys := make([]string, 0, t.NumField())
	for i := range t.NumField() {
		if key := t.Field(i).Tag.Get("mapstructure"); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
