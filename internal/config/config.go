// Package config loads settings from defaults, a YAML file, the environment
// and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/hiansit/ankiflow/internal/level"
)

// EnvPrefix prefixes every environment variable, e.g. ANKIFLOW_DATA_DIR.
const EnvPrefix = "ANKIFLOW_"

// Config holds all application configuration.
type Config struct {
	DataDir       string        `koanf:"data-dir" validate:"required"`
	Context       string        `koanf:"context" validate:"required"`
	LogLevel      string        `koanf:"log-level" validate:"oneof=debug info warn error"`
	LogFormat     string        `koanf:"log-format" validate:"oneof=text json"`
	MaxLevel      int           `koanf:"max-level" validate:"gte=1,lte=10"`
	Mode          string        `koanf:"mode" validate:"oneof=random id_asc last_studied"`
	Levels        []int         `koanf:"levels" validate:"dive,gte=0"`
	SpeechRate    float64       `koanf:"speech-rate" validate:"gte=0.1,lte=4"`
	SpeechTimeout time.Duration `koanf:"speech-timeout" validate:"gt=0"`
	SpeechCommand string        `koanf:"speech-command"`
	Listen        string        `koanf:"listen" validate:"required,hostname_port"`
	ReposDir      string        `koanf:"repos-dir" validate:"required"`
	Sources       []string      `koanf:"sources"`
	Prune         bool          `koanf:"prune"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	dataDir := ".ankiflow"
	if dir, err := os.UserConfigDir(); err == nil {
		dataDir = filepath.Join(dir, "ankiflow")
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	return map[string]any{
		"data-dir":       dataDir,
		"context":        cwd,
		"log-level":      "info",
		"log-format":     "text",
		"max-level":      level.DefaultMax,
		"mode":           "last_studied",
		"speech-rate":    1.0,
		"speech-timeout": "10s",
		"listen":         "127.0.0.1:8080",
	}
}

// Load builds the configuration. configPath may be empty. flags may be nil;
// only flags the user set override the other layers.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(cfg.Levels) == 0 {
		cfg.Levels = (&level.Policy{Max: cfg.MaxLevel}).Levels()
	}
	if cfg.ReposDir == "" {
		cfg.ReposDir = filepath.Join(cfg.DataDir, "repos")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

// envKey turns ANKIFLOW_SPEECH_RATE into speech-rate.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "_", "-")
}
