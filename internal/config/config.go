// Package config loads the shell's ambient settings — prompt string,
// history file path, and verbose-logging flag — from a YAML config
// file and/or CLI flags, grounded on mschot-dbcalm's
// spf13/viper + spf13/cobra pairing (internal/cli/root.go in that
// repo). None of this is shell *scripting* configuration (no rc-file
// sourcing of shell commands, no aliases, no variables) — it is
// ordinary process-level CLI ambient stack, which spec.md's Non-goals
// do not exclude.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the shell's startup settings.
type Config struct {
	Prompt      string `mapstructure:"prompt"`
	HistoryFile string `mapstructure:"history_file"`
	Verbose     bool   `mapstructure:"verbose"`
}

// Default returns the shell's built-in settings, used when no config
// file is present and no flags override them.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Prompt:      "stsh> ",
		HistoryFile: filepath.Join(home, ".stsh_history"),
		Verbose:     false,
	}
}

// Load reads settings from path (if non-empty) layered over Default,
// then over $HOME/.stsh.yaml if it exists and path was not given.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("prompt", cfg.Prompt)
	v.SetDefault("history_file", cfg.HistoryFile)
	v.SetDefault("verbose", cfg.Verbose)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".stsh")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return cfg, fmt.Errorf("config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
