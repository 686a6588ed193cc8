package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const devSecret = "skycalling-dev-secret-change-me"

type Config struct {
	Mode       string `mapstructure:"mode"`
	LogLevel   string `mapstructure:"log_level"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`

	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	SendBuffer   int           `mapstructure:"send_buffer"`

	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`

	RingTimeout time.Duration `mapstructure:"ring_timeout"`
	CallRate    float64       `mapstructure:"call_rate"`
	CallBurst   int           `mapstructure:"call_burst"`

	DatabasePath string `mapstructure:"database_path"`

	ICEServers    []string `mapstructure:"ice_servers"`
	ICEUsername   string   `mapstructure:"ice_username"`
	ICECredential string   `mapstructure:"ice_credential"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.SetEnvPrefix("SKYCALLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", devSecret)
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("ring_timeout", "45s")
	v.SetDefault("call_rate", 1.0)
	v.SetDefault("call_burst", 5)
	v.SetDefault("database_path", "")
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("ice_username", "")
	v.SetDefault("ice_credential", "")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Secret == devSecret && cfg.Mode == "release" {
		log.Warn().Str("module", "config").Msg("using the built-in development secret")
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Dur("ring_timeout", cfg.RingTimeout).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Secret == "" {
		return fmt.Errorf("secret must not be empty")
	}
	if c.PingPeriod <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("ping_period and write_timeout must be positive")
	}
	if c.RingTimeout < 0 {
		return fmt.Errorf("ring_timeout must not be negative")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level is the configured zerolog level, info when unparsable.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
