// Package config loads settings from ~/.config/mural/config.yaml,
// MURAL_* environment variables and built-in defaults, in that
// priority order (env wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// AI holds the language-model endpoint settings. BaseURL accepts
// anything an OpenAI-compatible server exposes; path normalization
// happens at request time, not here.
type AI struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// Server holds the HTTP relay settings.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Logging holds log sink settings.
type Logging struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Canvas holds document defaults applied to new documents.
type Canvas struct {
	GridSize   float64 `mapstructure:"grid_size"`
	SnapToGrid bool    `mapstructure:"snap_to_grid"`
}

// Config is the full application configuration.
type Config struct {
	DocumentsDir string  `mapstructure:"documents_dir"`
	AI           AI      `mapstructure:"ai"`
	Server       Server  `mapstructure:"server"`
	Logging      Logging `mapstructure:"logging"`
	Canvas       Canvas  `mapstructure:"canvas"`
}

// Dir returns the per-user config directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mural")
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("documents_dir", filepath.Join(home, "mural"))
	v.SetDefault("ai.base_url", "http://localhost:11434")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("server.addr", ":8732")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("canvas.grid_size", 20)
	v.SetDefault("canvas.snap_to_grid", true)
}

// Load reads the config file if present and merges environment
// overrides. A missing config file is not an error; a malformed one
// is.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(Dir())

	v.SetEnvPrefix("MURAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Canvas.GridSize <= 0 {
		cfg.Canvas.GridSize = 20
	}
	return cfg, nil
}
