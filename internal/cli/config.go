package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: serve.addr is read from
// SQLHEUR_SERVE_ADDR.
const EnvPrefix = "SQLHEUR"

// Configuration keys.
const (
	KeyServeAddr   = "serve.addr"
	KeyServeDB     = "serve.db"
	KeyServeTarget = "serve.target"
	KeyLogLevel    = "log.level"
)

// Config is the decoded configuration.
type Config struct {
	Serve ServeConfig `mapstructure:"serve"`
	Log   LogConfig   `mapstructure:"log"`
}

// ServeConfig configures the serve command.
type ServeConfig struct {
	Addr   string `mapstructure:"addr"`
	DB     string `mapstructure:"db"`
	Target string `mapstructure:"target"` // database POSTed queries are scored against
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// NewConfig returns a viper instance with defaults and environment
// overrides but no config file.
func NewConfig() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyServeAddr, ":8080")
	v.SetDefault(KeyServeDB, "sqlheur.db")
	v.SetDefault(KeyServeTarget, "")
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig returns NewConfig with path read on top when path is set.
// Precedence: flags bound by commands, then environment, then the file,
// then defaults.
func LoadConfig(path string) (*viper.Viper, error) {
	v := NewConfig()
	if path == "" {
		return v, nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return v, nil
}

// DecodeConfig unmarshals the settings of v.
func DecodeConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}
