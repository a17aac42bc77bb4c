// Package config loads quest settings from the environment.
//
// Variables carry the QUEST_ prefix and use a double underscore for nesting,
// so QUEST_DATABASE__HOST sets database.host. A .env file in the working
// directory is loaded first when present.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Konsultn-Engineering/quest/connector"
	"github.com/Konsultn-Engineering/quest/splitter"
	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const Prefix = "QUEST_"

// Config is the root configuration.
type Config struct {
	Database connector.Config `koanf:"database"`
	Quest    QuestConfig      `koanf:"quest"`
	Splitter splitter.Config  `koanf:"splitter"`
	Log      LogConfig        `koanf:"log"`
}

// QuestConfig locates quest files.
type QuestConfig struct {
	Dir    string `koanf:"dir" validate:"required"`
	SQLDir string `koanf:"sql_dir"`
	Timing bool   `koanf:"timing"`
}

// SQLPath returns the directory relative SQL files are read from.
func (q QuestConfig) SQLPath() string {
	if filepath.IsAbs(q.SQLDir) {
		return q.SQLDir
	}
	return filepath.Join(q.Dir, q.SQLDir)
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty"`
}

// Default returns the configuration used for anything the environment
// leaves unset.
func Default() *Config {
	return &Config{
		Database: connector.Config{
			Port:           5432,
			Driver:         connector.DefaultDriver,
			ConnectTimeout: 10 * time.Second,
		},
		Quest: QuestConfig{
			Dir:    ".",
			SQLDir: "sql",
		},
		Splitter: splitter.Config{
			Timeout:   splitter.DefaultTimeout,
			CacheSize: 256,
			Listen:    ":8086",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the environment over Default and validates the result. The
// database section is checked when connecting, so tools that never touch
// the database can load without it.
func Load() (*Config, error) {
	k := koanf.New(".")
	err := k.Load(env.Provider(Prefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, Prefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
