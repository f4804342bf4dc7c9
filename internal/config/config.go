// Package config loads dhd settings from defaults, an optional YAML file and
// DHD_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/dhd/internal/address"
	"github.com/roach88/dhd/internal/gate"
)

// EnvPrefix prefixes every environment override, e.g. DHD_GATE_SETTLE.
const EnvPrefix = "DHD"

// Config holds application configuration.
type Config struct {
	Gate      GateConfig
	Address   AddressConfig
	Catalog   CatalogConfig
	Journal   JournalConfig
	Animation AnimationConfig
	Log       LogConfig
}

// GateConfig holds sequencing settings.
type GateConfig struct {
	Chevrons     int
	Settle       time.Duration
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`
}

// AddressConfig holds typed-input validation settings.
type AddressConfig struct {
	Pattern   string
	MinLength int `mapstructure:"min_length"`
	MaxLength int `mapstructure:"max_length"`
}

// CatalogConfig selects the destination catalog. Empty Dir uses the
// built-in one.
type CatalogConfig struct {
	Dir string
}

// JournalConfig selects the sqlite journal. Empty Path disables it.
type JournalConfig struct {
	Path string
}

// AnimationConfig scales simulated animation durations.
type AnimationConfig struct {
	Scale float64
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gate.chevrons", gate.ChevronCount)
	v.SetDefault("gate.settle", time.Second)
	v.SetDefault("gate.ready_timeout", time.Duration(0))
	v.SetDefault("address.pattern", address.DefaultPattern)
	v.SetDefault("address.min_length", 1)
	v.SetDefault("address.max_length", 0)
	v.SetDefault("catalog.dir", "")
	v.SetDefault("journal.path", "")
	v.SetDefault("animation.scale", 0.0)
	v.SetDefault("log.level", "info")
}

// Load reads configuration. path, when set, must exist; otherwise
// DHD_CONFIG is used, then ~/.config/dhd/config.yaml if present.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	explicit := path
	if explicit == "" {
		explicit = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "dhd"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the core cannot run with.
func (c Config) Validate() error {
	if c.Gate.Chevrons < 1 {
		return fmt.Errorf("gate.chevrons must be positive, got %d", c.Gate.Chevrons)
	}
	if c.Gate.Settle < 0 || c.Gate.ReadyTimeout < 0 {
		return errors.New("gate durations must not be negative")
	}
	if c.Address.MaxLength > 0 && c.Address.MaxLength < c.Address.MinLength {
		return fmt.Errorf("address.max_length %d is below min_length %d", c.Address.MaxLength, c.Address.MinLength)
	}
	if c.Animation.Scale < 0 {
		return errors.New("animation.scale must not be negative")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// Validator builds the address validator.
func (c Config) Validator() (*address.Validator, error) {
	return address.NewValidator(c.Address.Pattern, c.Address.MinLength, c.Address.MaxLength)
}

// LogLevel parses log.level.
func (c Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
